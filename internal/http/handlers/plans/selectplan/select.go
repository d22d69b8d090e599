// Package selectplan реализует HTTP-обработчик выбора тарифного плана.
//
// Бесплатный план активируется немедленно, платный паркуется до
// завершения внешнего чекаута.
package selectplan

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
)

// Request тело запроса на выбор плана.
type Request struct {
	PlanID int `json:"plan_id" validate:"required,gt=0"` // Идентификатор плана из каталога
}

// Handler обрабатывает запросы на выбор плана.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис выбора плана
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс выбора плана.
type Service interface {
	SelectPlan(ctx context.Context, userUID string, planID int) (bool, error)
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
// @Summary Выбрать тарифный план
// @Description Бесплатный план активируется сразу, платный сохраняется до оплаты.
// @Tags Plans
// @Accept json
// @Produce json
// @Param request body Request true "Выбранный план"
// @Success 200 {object} map[string]any "Результат выбора"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Security BearerAuth
// @Router /plans/select [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.selectplan"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
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
	activated, err := h.service.SelectPlan(r.Context(), userUID, req.PlanID)
	if err != nil {
		log.Error("failed to select plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not select plan"))
		return
	}

	log.Info("selected plan", slog.Int("plan_id", req.PlanID), slog.Bool("activated", activated))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"activated": activated,
	}))
}
