// Package refresh реализует HTTP-обработчик принудительного обновления
// баланса кредитов из биллинга. Используется после покупки или при
// подозрении на расхождение локального остатка с авторитетным.
package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
)

// Handler обрабатывает запросы на обновление баланса.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис кредитов
}

// Service описывает интерфейс обновления баланса.
type Service interface {
	Refresh(ctx context.Context, userUID string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Обновить баланс кредитов
// @Description Перечитывает авторитетные остатки из биллинга и перезаписывает локальные.
// @Tags Credits
// @Produce json
// @Success 200 {object} response.Response "Баланс обновлён"
// @Failure 502 {object} response.ErrorResponse "Биллинг недоступен, локальный баланс не тронут"
// @Security BearerAuth
// @Router /credits/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	if err := h.service.Refresh(r.Context(), userUID); err != nil {
		log.Error("failed to refresh credit balances", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not refresh balances, retry later"))
		return
	}

	log.Info("refreshed credit balances")
	render.JSON(w, r, response.StatusOKWithData(nil))
}
