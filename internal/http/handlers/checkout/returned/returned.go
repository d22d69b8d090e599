// Package returned реализует HTTP-обработчик возврата из внешнего чекаута.
//
// Единственный автоматический триггер сверки: признак успеха в параметрах
// возврата. Возврат без признака успеха (отменённый или брошенный чекаут)
// сверку не запускает и кеш не трогает.
package returned

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/services/reconcile"
)

// Handler обрабатывает возврат пользователя из чекаута.
type Handler struct {
	log       *slog.Logger // Логгер для записи информации и ошибок
	service   Service      // Агент сверки
	returnURL string       // Куда вернуть пользователя в приложении
}

// Service описывает интерфейс агента сверки.
type Service interface {
	Reconcile(ctx context.Context, userUID string) (reconcile.Outcome, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service, returnURL string) *Handler {
	return &Handler{
		log:       log,
		service:   service,
		returnURL: returnURL,
	}
}

// ServeHTTP godoc
// @Summary Возврат из чекаута
// @Description При outcome=success запускает сверку, затем перенаправляет в приложение.
// @Tags Reconcile
// @Param outcome query string false "Результат чекаута"
// @Success 302 "Перенаправление в приложение"
// @Security BearerAuth
// @Router /checkout/return [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.returned"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	outcome := r.URL.Query().Get("outcome")
	if outcome == "success" {
		userUID := middlewarectx.UserUID(r.Context())
		result, err := h.service.Reconcile(r.Context(), userUID)
		if err != nil {
			// Fail-soft: пользователь уезжает в приложение с последним
			// известным состоянием, повторить сверку можно вручную.
			log.Error("reconciliation after checkout failed", sl.Err(err))
		} else {
			log.Info("reconciled after checkout", slog.String("outcome", string(result)))
		}
	} else {
		log.Info("checkout returned without success, nothing to do",
			slog.String("outcome", outcome))
	}

	http.Redirect(w, r, h.returnURL, http.StatusFound)
}
