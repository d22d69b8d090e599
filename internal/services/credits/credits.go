// Package credits содержит бизнес-логику ведения баланса кредитов.
//
// Списание — одна логическая операция: проверка достаточности и
// декремент выполняются одним условным UPDATE, промежуточных состояний
// снаружи не видно. Нехватка кредитов — ожидаемый исход, не ошибка.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/authority"
	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/metrics"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// DefaultInitialBalances стартовые остатки кредитов нового пользователя.
var DefaultInitialBalances = map[string]int{
	models.CreditVoice: 10,
	models.CreditGift:  3,
}

// CreditRepository определяет методы для работы с балансом в хранилище.
type CreditRepository interface {
	// GetBalance возвращает текущий остаток по типу кредита.
	GetBalance(ctx context.Context, userUID, creditType string) (int, error)
	// ConsumeBalance атомарно списывает amount при достаточном остатке.
	ConsumeBalance(ctx context.Context, userUID, creditType string, amount int) (int, bool, error)
	// SetBalance безусловно перезаписывает остаток.
	SetBalance(ctx context.Context, userUID, creditType string, balance int, reason string) error
	// InitBalances заводит стартовые остатки, не трогая существующие.
	InitBalances(ctx context.Context, userUID string, initial map[string]int) error
}

// AuthorityClient описывает нужную часть клиента биллингового сервиса.
type AuthorityClient interface {
	FetchCreditBalances(ctx context.Context, userUID string) (*authority.CreditBalances, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(key string, ttl time.Duration, result any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с кредитами.
type Service struct {
	repo      CreditRepository
	authority AuthorityClient
	cache     Cache
	log       *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New создает новый сервис кредитов.
func New(repo CreditRepository, authorityClient AuthorityClient, c Cache, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		authority: authorityClient,
		cache:     c,
		log:       log,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// userLock выдаёт мьютекс пользователя: два быстрых списания подряд
// сериализуются, второе видит результат первого.
func (s *Service) userLock(userUID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userUID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userUID] = lock
	}
	return lock
}

// Consume списывает amount кредитов. Возвращает признак успеха и новый
// остаток. При нехватке кредитов — false без каких-либо изменений:
// повторная попытка с тем же превышающим количеством оставит баланс
// ровно тем же.
func (s *Service) Consume(ctx context.Context, userUID, creditType string, amount int) (bool, int, error) {
	const op = "credits.Consume"

	lock := s.userLock(userUID)
	lock.Lock()
	defer lock.Unlock()

	newBalance, ok, err := s.repo.ConsumeBalance(ctx, userUID, creditType, amount)
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		metrics.CreditConsumes.WithLabelValues("insufficient").Inc()
		balance, err := s.Balance(ctx, userUID, creditType)
		if err != nil {
			return false, 0, fmt.Errorf("%s: %w", op, err)
		}
		return false, balance, nil
	}

	metrics.CreditConsumes.WithLabelValues("success").Inc()
	s.cacheBalance(userUID, creditType, newBalance)
	s.log.Info("consumed credits", sl.UID(userUID),
		slog.String("credit_type", creditType),
		slog.Int("amount", amount), slog.Int("balance", newBalance))
	return true, newBalance, nil
}

// Refresh перечитывает авторитетные остатки из биллинга и безусловно
// перезаписывает хранилище и кеш. Используется после покупки или при
// подозрении на расхождение.
func (s *Service) Refresh(ctx context.Context, userUID string) error {
	const op = "credits.Refresh"

	lock := s.userLock(userUID)
	lock.Lock()
	defer lock.Unlock()

	balances, err := s.authority.FetchCreditBalances(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for creditType, balance := range balances.Balances {
		if err := s.repo.SetBalance(ctx, userUID, creditType, balance, "refresh"); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.cacheBalance(userUID, creditType, balance)
	}
	s.log.Info("refreshed credit balances", sl.UID(userUID),
		slog.Int("credit_types", len(balances.Balances)))
	return nil
}

// Balance возвращает остаток по типу кредита, используя кеш или хранилище.
func (s *Service) Balance(ctx context.Context, userUID, creditType string) (int, error) {
	const op = "credits.Balance"

	var cached models.CreditBalance
	found, err := s.cache.Get(cache.KeyCredits(userUID, creditType), cache.TTLCredits, &cached)
	if err != nil {
		s.log.Warn("failed to read credits cache", sl.Err(err))
	}
	if found {
		return cached.Count, nil
	}

	balance, err := s.repo.GetBalance(ctx, userUID, creditType)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.cacheBalance(userUID, creditType, balance)
	return balance, nil
}

// Init заводит стартовые остатки кредитов пользователя. Идемпотентно:
// существующие остатки не перезаписываются.
func (s *Service) Init(ctx context.Context, userUID string) error {
	const op = "credits.Init"
	if err := s.repo.InitBalances(ctx, userUID, DefaultInitialBalances); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) cacheBalance(userUID, creditType string, balance int) {
	entry := models.CreditBalance{
		UserUID:    userUID,
		CreditType: creditType,
		Count:      balance,
		CachedAt:   s.now(),
	}
	key := cache.KeyCredits(userUID, creditType)
	if err := s.cache.Put(key, entry, cache.TTLCredits); err != nil {
		s.log.Warn("failed to cache balance", slog.String("key", key), slog.Any("err", err))
	}
}
