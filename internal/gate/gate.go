// Package gate реализует защиту платных возможностей: по разрешённому
// праву пользователя выносится одно из трёх решений.
//
// Машина состояний: LOADING -> {GRANTED, DENIED}. LOADING — зависимости
// резолвера ещё не готовы (каталог недоступен), запрос стоит повторить.
// DENIED всегда сопровождается ровно одним адресом перенаправления и
// никогда не пропускает к защищённому содержимому, даже на мгновение.
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/metrics"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Состояния решения гейта.
const (
	StateLoading = "loading"
	StateGranted = "granted"
	StateDenied  = "denied"
)

// Decision решение гейта по запросу.
type Decision struct {
	State       string // loading, granted или denied
	Reason      string // Краткое пояснение для клиента
	RedirectURL string // Куда отправить пользователя при отказе
}

// Resolver описывает нужную часть резолвера прав.
type Resolver interface {
	Resolve(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// TrialStatus описывает нужную часть сервиса пробного периода.
type TrialStatus interface {
	Status(ctx context.Context, userUID string) (*models.TrialState, error)
}

// Gate выносит решения о доступе к платным возможностям.
type Gate struct {
	resolver   Resolver
	trial      TrialStatus
	log        *slog.Logger
	loginURL   string
	upgradeURL string
	now        func() time.Time
}

// New создает новый гейт.
func New(resolver Resolver, trialService TrialStatus, log *slog.Logger, loginURL, upgradeURL string) *Gate {
	return &Gate{
		resolver:   resolver,
		trial:      trialService,
		log:        log,
		loginURL:   loginURL,
		upgradeURL: upgradeURL,
		now:        time.Now,
	}
}

// Check выносит решение о доступе к возможности feature.
func (g *Gate) Check(ctx context.Context, userUID, feature string) Decision {
	if userUID == "" {
		return g.decide(Decision{
			State:       StateDenied,
			Reason:      "authentication required",
			RedirectURL: g.loginURL,
		})
	}

	ent, err := g.resolver.Resolve(ctx, userUID)
	if err != nil {
		// Каталог или кеш ещё не готовы: не отказ, но и не допуск.
		g.log.Warn("entitlement not settled yet", sl.Err(err))
		return g.decide(Decision{State: StateLoading, Reason: "entitlement not settled"})
	}

	if ent.HasFeature(feature) {
		return g.decide(Decision{State: StateGranted})
	}
	return g.decide(Decision{
		State:       StateDenied,
		Reason:      "feature not included in current plan",
		RedirectURL: g.upgradeURL,
	})
}

// CheckTrial выносит решение для возможности, открытой пробным периодом.
// Допуск требует и аутентификации, и активного пробного периода; после
// истечения переход в отказ немедленный и обратного пути нет — только
// новый пробный период или платная подписка.
func (g *Gate) CheckTrial(ctx context.Context, userUID string) Decision {
	if userUID == "" {
		return g.decide(Decision{
			State:       StateDenied,
			Reason:      "authentication required",
			RedirectURL: g.loginURL,
		})
	}

	state, err := g.trial.Status(ctx, userUID)
	if err != nil {
		g.log.Warn("trial state not settled yet", sl.Err(err))
		return g.decide(Decision{State: StateLoading, Reason: "trial state not settled"})
	}
	if !state.IsActive(g.now()) {
		return g.decide(Decision{
			State:       StateDenied,
			Reason:      "trial expired or not started",
			RedirectURL: g.upgradeURL,
		})
	}
	return g.decide(Decision{State: StateGranted})
}

func (g *Gate) decide(d Decision) Decision {
	metrics.GateDecisions.WithLabelValues(d.State).Inc()
	return d
}
