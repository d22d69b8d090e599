// Package entitlement содержит ядро политики доступа: резолвер, который
// отвечает на вопрос «что этому пользователю доступно прямо сейчас».
//
// Резолвер никогда не ходит в сеть. Чтение — цепочка уровней кеша,
// первый сработавший уровень выигрывает, уровни не смешиваются:
//
//  1. нет пользователя — пустое право, гейты закрыты;
//  2. кешированная подписка — используется дословно;
//  3. кешированный профиль с активным планом — подписка синтезируется
//     по каталогу и продвигается в слот подписки;
//  4. иначе — неявный бесплатный уровень.
//
// Актуальность кеша — забота агента сверки, не резолвера.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/metrics"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
	"github.com/magabrotheeeer/entitlement-service/internal/services/catalog"
)

// Catalog описывает нужную часть каталога планов.
type Catalog interface {
	Load(ctx context.Context) ([]models.Plan, error)
	FindByName(ctx context.Context, name string) (*models.Plan, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(key string, ttl time.Duration, result any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
	Invalidate(key string) error
}

// Service реализует резолвер прав. Создаётся на старте приложения и
// передаётся явно, без глобального состояния.
type Service struct {
	catalog Catalog
	cache   Cache
	log     *slog.Logger
	now     func() time.Time
}

// New создает новый резолвер прав.
func New(catalog Catalog, c Cache, log *slog.Logger) *Service {
	return &Service{
		catalog: catalog,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

// Resolve возвращает текущее право пользователя. Пустой userUID —
// анонимный запрос, право пустое.
func (s *Service) Resolve(ctx context.Context, userUID string) (*models.Entitlement, error) {
	const op = "entitlement.Resolve"

	if userUID == "" {
		metrics.EntitlementResolutions.WithLabelValues(models.TierAnonymous).Inc()
		return models.Anonymous(), nil
	}

	var sub models.Subscription
	found, err := s.cache.Get(cache.KeySubscription(userUID), cache.TTLSubscription, &sub)
	if err != nil {
		s.log.Warn("failed to read subscription cache", sl.Err(err))
	}
	if found {
		metrics.EntitlementResolutions.WithLabelValues(models.TierSubscription).Inc()
		return s.fromSubscription(userUID, &sub, models.TierSubscription), nil
	}

	var profile models.UserProfile
	found, err = s.cache.Get(cache.KeyProfile(userUID), cache.TTLProfile, &profile)
	if err != nil {
		s.log.Warn("failed to read profile cache", sl.Err(err))
	}
	if found && profile.PlanActive && profile.PlanName != nil {
		promoted, err := s.promote(ctx, userUID, *profile.PlanName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if promoted != nil {
			metrics.EntitlementResolutions.WithLabelValues(models.TierProfile).Inc()
			return s.fromSubscription(userUID, promoted, models.TierProfile), nil
		}
	}

	metrics.EntitlementResolutions.WithLabelValues(models.TierFree).Inc()
	return models.FreeTier(userUID), nil
}

// promote синтезирует подписку из профиля по каталогу и записывает её
// в слот подписки. План, которого нет в каталоге, продвижения не даёт —
// пользователь проваливается на бесплатный уровень.
func (s *Service) promote(ctx context.Context, userUID, planName string) (*models.Subscription, error) {
	plan, err := s.catalog.FindByName(ctx, planName)
	if err != nil {
		// Недоступный каталог — ошибка резолва, отсутствующий план — нет.
		if isNotFound(err) {
			s.log.Warn("profile references unknown plan",
				sl.UID(userUID), slog.String("plan_name", planName))
			return nil, nil
		}
		return nil, err
	}

	sub := &models.Subscription{
		UserUID:   userUID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Status:    models.StatusActive,
		StartDate: s.now(),
		Plan:      plan,
		CachedAt:  s.now(),
	}
	key := cache.KeySubscription(userUID)
	if err := s.cache.Put(key, sub, cache.TTLSubscription); err != nil {
		s.log.Warn("failed to promote profile to subscription cache",
			slog.String("key", key), slog.Any("err", err))
	}
	return sub, nil
}

// fromSubscription собирает право из подписки. Флаги возможностей
// берутся из вложенного снимка плана и только при активном статусе.
func (s *Service) fromSubscription(userUID string, sub *models.Subscription, tier string) *models.Entitlement {
	ent := &models.Entitlement{
		UserUID:      userUID,
		Tier:         tier,
		Subscription: sub,
	}
	if sub.IsActive() && sub.Plan != nil {
		ent.Features = sub.Plan.Features
	}
	return ent
}

// ErrUnknownPlan выбранного плана нет в каталоге.
var ErrUnknownPlan = errors.New("unknown plan")

// SelectPlan обрабатывает выбор плана пользователем. Бесплатный план
// активируется немедленно: подписка со статусом active пишется в оба
// уровня кеша. Платный план лишь паркуется в черновом слоте до
// завершения внешнего чекаута и сверки.
func (s *Service) SelectPlan(ctx context.Context, userUID string, planID int) (bool, error) {
	const op = "entitlement.SelectPlan"

	plans, err := s.catalog.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	var plan *models.Plan
	for i := range plans {
		if plans[i].ID == planID {
			plan = &plans[i]
			break
		}
	}
	if plan == nil {
		return false, fmt.Errorf("%s: %w: id=%d", op, ErrUnknownPlan, planID)
	}

	if !plan.IsFree() {
		if err := s.cache.Put(cache.KeySelectedPlan(userUID), plan.ID, cache.TTLSelectedPlan); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("parked selected paid plan", sl.UID(userUID), slog.Int("plan_id", plan.ID))
		return false, nil
	}

	now := s.now()
	sub := &models.Subscription{
		UserUID:   userUID,
		PlanID:    plan.ID,
		PlanName:  plan.Name,
		Status:    models.StatusActive,
		StartDate: now,
		Plan:      plan,
		CachedAt:  now,
	}
	profile := &models.UserProfile{
		UserUID:    userUID,
		PlanName:   &plan.Name,
		PlanActive: true,
		CachedAt:   now,
	}
	if err := s.cache.Put(cache.KeySubscription(userUID), sub, cache.TTLSubscription); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Put(cache.KeyProfile(userUID), profile, cache.TTLProfile); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("activated free plan", sl.UID(userUID), slog.String("plan_name", plan.Name))
	return true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrPlanNotFound)
}

// ClearUser удаляет все слоты кеша пользователя. Вызывается при выходе
// из аккаунта.
func (s *Service) ClearUser(userUID string) error {
	const op = "entitlement.ClearUser"
	keys := []string{
		cache.KeySubscription(userUID),
		cache.KeyProfile(userUID),
		cache.KeyTrial(userUID),
		cache.KeySelectedPlan(userUID),
		cache.KeyCredits(userUID, models.CreditVoice),
		cache.KeyCredits(userUID, models.CreditGift),
	}
	for _, key := range keys {
		if err := s.cache.Invalidate(key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	s.log.Info("cleared user cache slots", sl.UID(userUID))
	return nil
}
