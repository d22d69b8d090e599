// Package entitlementservice предоставляет маршруты и сборку основного приложения.
package entitlementservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/gate"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/checkout/returned"
	creditsconsume "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/credits/consume"
	creditsrefresh "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/credits/refresh"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/entitlement/resolve"
	gatecheck "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/gate/check"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/payment/paymentwebhook"
	planslist "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/plans/list"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/plans/selectplan"
	reconcilerun "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/reconcile/run"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/session/logout"
	trialstart "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/trial/start"
	voicesend "github.com/magabrotheeeer/entitlement-service/internal/http/handlers/voice/send"
	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	libjwt "github.com/magabrotheeeer/entitlement-service/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-service/internal/rabbitmq"
	catalogservice "github.com/magabrotheeeer/entitlement-service/internal/services/catalog"
	creditsservice "github.com/magabrotheeeer/entitlement-service/internal/services/credits"
	entitlementresolver "github.com/magabrotheeeer/entitlement-service/internal/services/entitlement"
	reconcileservice "github.com/magabrotheeeer/entitlement-service/internal/services/reconcile"
	trialservice "github.com/magabrotheeeer/entitlement-service/internal/services/trial"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	jwtMaker libjwt.Maker,
	catalog *catalogservice.Service,
	resolver *entitlementresolver.Service,
	credits *creditsservice.Service,
	trial *trialservice.Service,
	reconciler *reconcileservice.Service,
	featureGate *gate.Gate,
	publisher *rabbitmq.Publisher,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/plans", planslist.New(logger, catalog).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/entitlement", resolve.New(logger, resolver).ServeHTTP)
			r.Post("/plans/select", selectplan.New(logger, resolver).ServeHTTP)
			r.Post("/credits/consume", creditsconsume.New(logger, credits).ServeHTTP)
			r.Post("/credits/refresh", creditsrefresh.New(logger, credits).ServeHTTP)
			r.Post("/trial/start", trialstart.New(logger, trial).ServeHTTP)
			r.Post("/reconcile", reconcilerun.New(logger, reconciler).ServeHTTP)
			r.Get("/checkout/return", returned.New(logger, reconciler, cfg.Gate.UpgradeURL).ServeHTTP)
			r.Post("/logout", logout.New(logger, resolver).ServeHTTP)

			// Трёхзначный контракт гейта для клиентской стороны.
			r.Get("/gate/{feature}", gatecheck.New(logger, featureGate).ServeHTTP)

			// Закрытые действия: до обработчика доходят только
			// допущенные запросы.
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.FeatureGateMiddleware(featureGate, "audio", logger))
				r.Post("/voice/send", voicesend.New(logger, credits).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", paymentwebhook.New(logger, publisher, cfg.Webhook.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
