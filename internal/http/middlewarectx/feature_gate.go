package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/gate"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
)

// FeatureGateMiddleware закрывает маршрут гейтом возможности feature.
// Защищённый обработчик вызывается только при допуске; отказ отвечает
// перенаправлением, незавершённая загрузка — 503 с Retry-After.
func FeatureGateMiddleware(g *gate.Gate, feature string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := g.Check(r.Context(), UserUID(r.Context()), feature)
			writeDecision(w, r, decision, next, log)
		})
	}
}

// TrialGateMiddleware закрывает маршрут гейтом пробного периода.
func TrialGateMiddleware(g *gate.Gate, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := g.CheckTrial(r.Context(), UserUID(r.Context()))
			writeDecision(w, r, decision, next, log)
		})
	}
}

func writeDecision(w http.ResponseWriter, r *http.Request, decision gate.Decision, next http.Handler, log *slog.Logger) {
	const op = "middlewarectx.writeDecision"
	log = log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	switch decision.State {
	case gate.StateGranted:
		next.ServeHTTP(w, r)
	case gate.StateLoading:
		log.Info("gate not settled, asking client to retry")
		w.Header().Set("Retry-After", "1")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("entitlement not settled, retry"))
	default:
		log.Info("gate denied", slog.String("reason", decision.Reason),
			slog.String("redirect", decision.RedirectURL))
		status := http.StatusPaymentRequired
		if decision.Reason == "authentication required" {
			status = http.StatusUnauthorized
		}
		w.Header().Set("Location", decision.RedirectURL)
		render.Status(r, status)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  decision.Reason,
			Data:   map[string]any{"redirect_url": decision.RedirectURL},
		})
	}
}
