// Package check реализует HTTP-обработчик решения гейта — трёхзначный
// контракт для клиентской стороны: loading, granted или denied с адресом
// перенаправления. Клиент рендерит защищённую область только при granted.
package check

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/gate"
	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
)

// Handler обрабатывает запросы решения гейта по возможности.
type Handler struct {
	log  *slog.Logger // Логгер для записи информации и ошибок
	gate *gate.Gate   // Гейт, выносящий решения
}

// New создает новый Handler с переданным логгером и гейтом.
func New(log *slog.Logger, g *gate.Gate) *Handler {
	return &Handler{
		log:  log,
		gate: g,
	}
}

// ServeHTTP godoc
// @Summary Решение гейта по возможности
// @Description Возвращает loading, granted или denied с адресом перенаправления. Для feature=trial решает гейт пробного периода.
// @Tags Gate
// @Produce json
// @Param feature path string true "Возможность: text, audio, premium или trial"
// @Success 200 {object} map[string]any "Решение гейта"
// @Security BearerAuth
// @Router /gate/{feature} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.gate.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	feature := chi.URLParam(r, "feature")
	userUID := middlewarectx.UserUID(r.Context())

	var decision gate.Decision
	if feature == "trial" {
		decision = h.gate.CheckTrial(r.Context(), userUID)
	} else {
		decision = h.gate.Check(r.Context(), userUID, feature)
	}

	log.Info("gate decision", slog.String("feature", feature), slog.String("state", decision.State))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"state":        decision.State,
		"reason":       decision.Reason,
		"redirect_url": decision.RedirectURL,
	}))
}
