package entitlementservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/entitlement-service/internal/authority"
	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/gate"
	libjwt "github.com/magabrotheeeer/entitlement-service/internal/lib/jwt"
	"github.com/magabrotheeeer/entitlement-service/internal/migrations"
	"github.com/magabrotheeeer/entitlement-service/internal/rabbitmq"
	catalogservice "github.com/magabrotheeeer/entitlement-service/internal/services/catalog"
	creditsservice "github.com/magabrotheeeer/entitlement-service/internal/services/credits"
	entitlementresolver "github.com/magabrotheeeer/entitlement-service/internal/services/entitlement"
	reconcileservice "github.com/magabrotheeeer/entitlement-service/internal/services/reconcile"
	trialservice "github.com/magabrotheeeer/entitlement-service/internal/services/trial"
	"github.com/magabrotheeeer/entitlement-service/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitMQ.ConnectionString, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
	if err != nil {
		return nil, err
	}
	rabbitChannel, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.GetPaymentQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(rabbitChannel)

	jwtMaker := libjwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authorityClient := authority.NewClient(cfg.Authority)

	catalog := catalogservice.New(authorityClient, cacheRedis, logger)
	credits := creditsservice.New(db, authorityClient, cacheRedis, logger)
	trial := trialservice.New(db, credits, cacheRedis, logger)
	resolver := entitlementresolver.New(catalog, cacheRedis, logger)
	reconciler := reconcileservice.New(authorityClient, catalog, credits, cacheRedis, logger)
	featureGate := gate.New(resolver, trial, logger, cfg.Gate.LoginURL, cfg.Gate.UpgradeURL)

	// Холодный старт: каталог загружается первым, чтобы гейты не
	// зависали в loading дольше необходимого. Неудача не фатальна —
	// первый запрос повторит загрузку.
	if _, err := catalog.Load(ctx); err != nil {
		logger.Warn("failed to warm up plan catalog", slog.Any("err", err))
	}

	router := chi.NewRouter()

	RegisterRoutes(router, logger, cfg, jwtMaker, catalog, resolver, credits, trial, reconciler, featureGate, publisher)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		return err
	}
}
