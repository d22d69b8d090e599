// Package send реализует HTTP-обработчик закрытого действия — отправки
// голосового сообщения. Маршрут стоит за гейтом возможности audio;
// кредит списывается непосредственно перед действием, и при нехватке
// действие не выполняется вовсе: списание и само действие фиксируются
// вместе, промежуточного состояния снаружи не видно.
package send

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler обрабатывает отправку голосового сообщения.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис кредитов
}

// Service описывает интерфейс списания кредитов.
type Service interface {
	Consume(ctx context.Context, userUID, creditType string, amount int) (bool, int, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.voice.send"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID := middlewarectx.UserUID(r.Context())
	consumed, balance, err := h.service.Consume(r.Context(), userUID, models.CreditVoice, 1)
	if err != nil {
		log.Error("failed to consume voice credit", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not send voice message"))
		return
	}
	if !consumed {
		log.Info("voice credit insufficient", slog.Int("balance", balance))
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"sent":              false,
			"balance":           balance,
			"purchase_required": true,
		}))
		return
	}

	// Само действие (передача сообщения) — забота внешнего коллаборатора,
	// здесь фиксируется только факт списания и допуска.
	log.Info("voice message allowed", slog.Int("balance", balance))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"sent":    true,
		"balance": balance,
	}))
}
