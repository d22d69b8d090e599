// Package run реализует HTTP-обработчик явного запуска сверки с биллингом.
//
// Неудачная сверка не трогает кеш: пользователь продолжает видеть
// последнее известное хорошее состояние, ответ предлагает повторить.
package run

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/services/reconcile"
)

// Handler обрабатывает запросы на явную сверку.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Агент сверки
}

// Service описывает интерфейс агента сверки.
type Service interface {
	Reconcile(ctx context.Context, userUID string) (reconcile.Outcome, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сверить права с биллингом
// @Description Перечитывает авторитетное состояние подписки и перезаписывает кеш при активном плане.
// @Tags Reconcile
// @Produce json
// @Success 200 {object} map[string]any "Итог сверки"
// @Failure 502 {object} response.ErrorResponse "Биллинг недоступен, кеш не тронут"
// @Security BearerAuth
// @Router /reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.run"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	outcome, err := h.service.Reconcile(r.Context(), userUID)
	if err != nil {
		log.Error("reconciliation failed, cached state kept", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("reconciliation failed, showing last known state, retry"))
		return
	}

	log.Info("reconciliation finished", slog.String("outcome", string(outcome)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"outcome": outcome,
	}))
}
