// Package catalog содержит бизнес-логику каталога тарифных планов.
//
// Каталог читается часто и меняется редко, поэтому обслуживается в три
// уровня: горячий in-process кеш, redis со сроком жизни в сутки и только
// затем поход в биллинговый сервис. Успешная загрузка пишется насквозь
// во все уровни. Если ни кеша, ни ответа биллинга нет — это жёсткая
// ошибка: без каталога решение о правах принять нельзя.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// ErrCatalogUnavailable каталог недоступен: кеш пуст и биллинг не ответил.
var ErrCatalogUnavailable = errors.New("plan catalog unavailable")

// ErrPlanNotFound в каталоге нет плана с таким названием.
var ErrPlanNotFound = errors.New("plan not found in catalog")

const hotKey = "catalog"

// AuthorityClient описывает нужную часть клиента биллингового сервиса.
type AuthorityClient interface {
	FetchPlans(ctx context.Context) ([]models.Plan, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(key string, ttl time.Duration, result any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
	Invalidate(key string) error
}

// Service реализует загрузку и поиск по каталогу планов.
type Service struct {
	authority AuthorityClient
	cache     Cache
	hot       *gocache.Cache
	log       *slog.Logger
}

// New создает новый сервис каталога.
func New(authority AuthorityClient, c Cache, log *slog.Logger) *Service {
	return &Service{
		authority: authority,
		cache:     c,
		hot:       gocache.New(cache.TTLCatalog, 10*time.Minute),
		log:       log,
	}
}

// Load возвращает список планов: горячий кеш, затем redis, затем биллинг.
// Промах везде и неудачный запрос дают ErrCatalogUnavailable.
func (s *Service) Load(ctx context.Context) ([]models.Plan, error) {
	const op = "catalog.Load"

	if v, ok := s.hot.Get(hotKey); ok {
		return v.([]models.Plan), nil
	}

	var plans []models.Plan
	found, err := s.cache.Get(cache.KeyCatalog(), cache.TTLCatalog, &plans)
	if err != nil {
		s.log.Warn("failed to read catalog cache", sl.Err(err))
	}
	if found {
		s.hot.SetDefault(hotKey, plans)
		return plans, nil
	}

	plans, err = s.authority.FetchPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrCatalogUnavailable, err)
	}
	// Отменённая загрузка не должна дописать в кеш частичный результат.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	if err := s.cache.Put(cache.KeyCatalog(), plans, cache.TTLCatalog); err != nil {
		s.log.Warn("failed to cache catalog", sl.Err(err))
	}
	s.hot.SetDefault(hotKey, plans)
	s.log.Info("loaded plan catalog", slog.Int("plans", len(plans)))
	return plans, nil
}

// FindByName ищет план по названию без учёта регистра.
func (s *Service) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	const op = "catalog.FindByName"
	plans, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range plans {
		if strings.EqualFold(plans[i].Name, name) {
			return &plans[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w: %s", op, ErrPlanNotFound, name)
}

// Invalidate сбрасывает оба уровня кеша каталога, следующий Load пойдёт в биллинг.
func (s *Service) Invalidate() error {
	s.hot.Delete(hotKey)
	return s.cache.Invalidate(cache.KeyCatalog())
}
