// Package trial содержит бизнес-логику пробного периода.
//
// Хранится только момент первого старта. Повторный старт — no-op, часы
// не сбрасываются. Активность и остаток часов — чистые функции от
// сохранённого момента старта и текущего времени.
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// TrialRepository определяет методы для работы со стартами пробного периода.
type TrialRepository interface {
	// StartTrial сохраняет момент старта, false — старт уже был.
	StartTrial(ctx context.Context, userUID string, startedAt time.Time) (bool, error)
	// GetTrial возвращает состояние, nil — пробный период не стартовал.
	GetTrial(ctx context.Context, userUID string) (*models.TrialState, error)
}

// CreditInitializer заводит стартовые остатки кредитов пользователя.
// Старт пробного периода не считается завершённым, пока кредиты не
// инициализированы: пользователь не должен добраться до закрытого экрана
// раньше своих кредитов.
type CreditInitializer interface {
	Init(ctx context.Context, userUID string) error
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(key string, ttl time.Duration, result any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику пробного периода.
type Service struct {
	repo    TrialRepository
	credits CreditInitializer
	cache   Cache
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый сервис пробного периода.
func New(repo TrialRepository, credits CreditInitializer, c Cache, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		credits: credits,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

// Start запускает пробный период. Идемпотентно: если старт уже был,
// возвращает false и не трогает сохранённый момент старта. Перед
// подтверждением старта инициализирует кредиты пользователя, ошибка
// инициализации — ошибка всего старта (вставка идемпотентна, повтор
// безопасен).
func (s *Service) Start(ctx context.Context, userUID string) (bool, error) {
	const op = "trial.Start"

	started, err := s.repo.StartTrial(ctx, userUID, s.now())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !started {
		s.log.Info("trial already started, ignoring", sl.UID(userUID))
		return false, nil
	}

	if err := s.credits.Init(ctx, userUID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	state, err := s.repo.GetTrial(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	s.cacheState(userUID, state)
	s.log.Info("started trial", sl.UID(userUID))
	return true, nil
}

// Status возвращает состояние пробного периода, используя кеш или
// хранилище. nil — пробный период ни разу не стартовал.
func (s *Service) Status(ctx context.Context, userUID string) (*models.TrialState, error) {
	const op = "trial.Status"

	var cached models.TrialState
	found, err := s.cache.Get(cache.KeyTrial(userUID), cache.TTLTrial, &cached)
	if err != nil {
		s.log.Warn("failed to read trial cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	state, err := s.repo.GetTrial(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if state != nil {
		s.cacheState(userUID, state)
	}
	return state, nil
}

// IsActive сообщает, действует ли пробный период прямо сейчас.
func (s *Service) IsActive(state *models.TrialState) bool {
	return state.IsActive(s.now())
}

// HoursRemaining возвращает остаток часов пробного периода.
func (s *Service) HoursRemaining(state *models.TrialState) int {
	return state.HoursRemaining(s.now())
}

func (s *Service) cacheState(userUID string, state *models.TrialState) {
	if state == nil {
		return
	}
	key := cache.KeyTrial(userUID)
	if err := s.cache.Put(key, state, cache.TTLTrial); err != nil {
		s.log.Warn("failed to cache trial state", slog.String("key", key), slog.Any("err", err))
	}
}
