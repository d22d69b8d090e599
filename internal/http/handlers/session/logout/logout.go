// Package logout реализует HTTP-обработчик выхода из аккаунта:
// все слоты кеша пользователя очищаются, следующий вход начнёт
// с пустого состояния и сверки.
package logout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
)

// Handler обрабатывает запросы на выход из аккаунта.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Резолвер прав, владеющий слотами кеша
}

// Service описывает интерфейс очистки кеша пользователя.
type Service interface {
	ClearUser(userUID string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	if err := h.service.ClearUser(userUID); err != nil {
		log.Error("failed to clear user cache", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not clear user state"))
		return
	}

	log.Info("user logged out, cache cleared")
	render.JSON(w, r, response.StatusOKWithData(nil))
}
