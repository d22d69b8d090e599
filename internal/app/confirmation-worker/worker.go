// Package confirmationworker собирает воркера, который принимает
// подтверждения платежей из очереди и запускает сверку прав.
package confirmationworker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/entitlement-service/internal/authority"
	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/rabbitmq"
	catalogservice "github.com/magabrotheeeer/entitlement-service/internal/services/catalog"
	creditsservice "github.com/magabrotheeeer/entitlement-service/internal/services/credits"
	reconcileservice "github.com/magabrotheeeer/entitlement-service/internal/services/reconcile"
	"github.com/magabrotheeeer/entitlement-service/internal/storage/repository"
)

type App struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	reconciler *reconcileservice.Service
	logger     *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.ConnectionString, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetPaymentQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	authorityClient := authority.NewClient(cfg.Authority)
	catalog := catalogservice.New(authorityClient, cacheRedis, logger)
	credits := creditsservice.New(db, authorityClient, cacheRedis, logger)
	reconciler := reconcileservice.New(authorityClient, catalog, credits, cacheRedis, logger)

	return &App{
		conn:       conn,
		ch:         ch,
		reconciler: reconciler,
		logger:     logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	handler := func(body []byte) error {
		var msg rabbitmq.ConfirmationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			// Неразбираемое сообщение: повторная доставка не поможет.
			a.logger.Error("failed to unmarshal confirmation", sl.Err(err))
			return nil
		}
		a.logger.Info("received payment confirmation",
			sl.UID(msg.UserUID), slog.String("payment_id", msg.PaymentID))
		if _, err := a.reconciler.Reconcile(ctx, msg.UserUID); err != nil {
			// Ошибка сверки даёт nack и повторную доставку.
			return err
		}
		return nil
	}

	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ConfirmationQueue, handler); err != nil {
		a.logger.Error("failed to start confirmation consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("confirmation worker shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
