// Package consume реализует HTTP-обработчик списания кредитов.
//
// Нехватка кредитов — не ошибка, а ожидаемый исход: в ответе
// consumed=false и признак, что пора предложить покупку. Вызывать
// списание следует непосредственно перед закрытым действием и при
// consumed=false действие не выполнять.
package consume

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler обрабатывает запросы на списание кредитов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис кредитов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс списания кредитов.
type Service interface {
	Consume(ctx context.Context, userUID, creditType string, amount int) (bool, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Списать кредиты
// @Description Списывает кредиты указанного типа. При нехватке возвращает consumed=false без изменений баланса.
// @Tags Credits
// @Accept json
// @Produce json
// @Param request body models.DummyConsume true "Тип кредита и количество"
// @Success 200 {object} map[string]any "Результат списания"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Security BearerAuth
// @Router /credits/consume [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.consume"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyConsume
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID := middlewarectx.UserUID(r.Context())
	consumed, balance, err := h.service.Consume(r.Context(), userUID, req.CreditType, req.Amount)
	if err != nil {
		log.Error("failed to consume credits", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not consume credits"))
		return
	}

	log.Info("consume attempt finished", slog.Bool("consumed", consumed), slog.Int("balance", balance))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"consumed":         consumed,
		"balance":          balance,
		"purchase_required": !consumed,
	}))
}
