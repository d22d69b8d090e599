// Package reconcile содержит агента сверки — единственное место, откуда
// локальный кеш прав перезаписывается авторитетными данными биллинга.
//
// Сверка запускается возвратом из внешнего чекаута, подтверждением
// платежа из очереди или явным запросом пользователя. Результат всегда
// полная перезапись обоих уровней кеша, никогда частичный патч.
// Транспортная ошибка ничего не трогает: пользователь продолжает видеть
// последнее известное хорошее состояние.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/entitlement-service/internal/authority"
	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/metrics"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Outcome итог сверки.
type Outcome string

const (
	// OutcomeUpdated кеш перезаписан подтверждённой подпиской.
	OutcomeUpdated Outcome = "updated"
	// OutcomeNoChange биллинг не сообщил активного плана, кеш не тронут.
	// Брошенный чекаут — не даунгрейд.
	OutcomeNoChange Outcome = "no_change"
	// OutcomeError сверка не удалась, кеш не тронут, можно повторить.
	OutcomeError Outcome = "error"
)

// AuthorityClient описывает нужную часть клиента биллингового сервиса.
type AuthorityClient interface {
	FetchSubscriptionStatus(ctx context.Context, userUID string) (*authority.SubscriptionStatus, error)
}

// Catalog описывает нужную часть каталога планов.
type Catalog interface {
	FindByName(ctx context.Context, name string) (*models.Plan, error)
}

// CreditRefresher перечитывает авторитетные остатки кредитов.
type CreditRefresher interface {
	Refresh(ctx context.Context, userUID string) error
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(key string, ttl time.Duration, result any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
	Invalidate(key string) error
}

// Service реализует агента сверки.
type Service struct {
	authority AuthorityClient
	catalog   Catalog
	credits   CreditRefresher
	cache     Cache
	log       *slog.Logger
	now       func() time.Time
	retries   uint64
}

// New создает нового агента сверки.
func New(authorityClient AuthorityClient, catalogService Catalog, credits CreditRefresher, c Cache, log *slog.Logger) *Service {
	return &Service{
		authority: authorityClient,
		catalog:   catalogService,
		credits:   credits,
		cache:     c,
		log:       log,
		now:       time.Now,
		retries:   3,
	}
}

// Reconcile сверяет кешированные права пользователя с биллингом.
func (s *Service) Reconcile(ctx context.Context, userUID string) (Outcome, error) {
	const op = "reconcile.Reconcile"
	log := s.log.With(slog.String("op", op), sl.UID(userUID))

	var status *authority.SubscriptionStatus
	operation := func() error {
		var err error
		status, err = s.authority.FetchSubscriptionStatus(ctx, userUID)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeError)).Inc()
		log.Error("failed to fetch subscription status, keeping cached state", sl.Err(err))
		return OutcomeError, fmt.Errorf("%s: %w", op, err)
	}

	if !status.ActivePlan || status.PlanName == nil {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeNoChange)).Inc()
		log.Info("no active plan reported, cache left untouched")
		return OutcomeNoChange, nil
	}

	plan, err := s.catalog.FindByName(ctx, *status.PlanName)
	if err != nil {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeError)).Inc()
		log.Error("failed to resolve plan from catalog", sl.Err(err))
		return OutcomeError, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	sub := &models.Subscription{
		UserUID:   userUID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Status:    models.StatusActive,
		StartDate: now,
		EndDate:   parsePeriodEnd(status.PeriodEnd),
		Plan:      plan,
		CachedAt:  now,
	}
	profile := &models.UserProfile{
		UserUID:    userUID,
		PlanName:   &plan.Name,
		PlanActive: true,
		CachedAt:   now,
	}

	// Оба уровня перезаписываются целиком, чтобы они не разъехались.
	if err := s.cache.Put(cache.KeySubscription(userUID), sub, cache.TTLSubscription); err != nil {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeError)).Inc()
		return OutcomeError, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Put(cache.KeyProfile(userUID), profile, cache.TTLProfile); err != nil {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeError)).Inc()
		return OutcomeError, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.credits.Refresh(ctx, userUID); err != nil {
		log.Warn("failed to refresh credits after reconciliation", sl.Err(err))
	}

	metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeUpdated)).Inc()
	log.Info("reconciled subscription", slog.String("plan_name", plan.Name))
	return OutcomeUpdated, nil
}

// parsePeriodEnd разбирает конец оплаченного периода, nil или
// неразбираемая строка дают бессрочную запись.
func parsePeriodEnd(periodEnd *string) *time.Time {
	if periodEnd == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *periodEnd)
	if err != nil {
		return nil
	}
	return &t
}
