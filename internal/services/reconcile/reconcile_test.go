package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/entitlement-service/internal/authority"
	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

type AuthorityMock struct{ mock.Mock }

func (m *AuthorityMock) FetchSubscriptionStatus(ctx context.Context, userUID string) (*authority.SubscriptionStatus, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authority.SubscriptionStatus), args.Error(1)
}

type CatalogMock struct{ mock.Mock }

func (m *CatalogMock) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

type CreditsMock struct{ mock.Mock }

func (m *CreditsMock) Refresh(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, ttl time.Duration, result any) (bool, error) {
	args := m.Called(key, ttl, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Put(key string, value any, ttl time.Duration) error {
	return m.Called(key, value, ttl).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(a *AuthorityMock, ca *CatalogMock, cr *CreditsMock, c *CacheMock) *Service {
	svc := New(a, ca, cr, c, newNoopLogger())
	// без повторов, чтобы тесты ошибок не ждали бэкофф
	svc.retries = 0
	return svc
}

func TestReconcile_ActivePlanOverwritesBothTiers(t *testing.T) {
	const uid = "user-1"
	planName := "Premium"
	periodEnd := "2026-01-01T00:00:00Z"
	plan := &models.Plan{ID: 3, Name: planName,
		Features: models.FeatureSet{Text: true, Audio: true, Premium: true}}

	a := new(AuthorityMock)
	ca := new(CatalogMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	a.On("FetchSubscriptionStatus", mock.Anything, uid).
		Return(&authority.SubscriptionStatus{
			ActivePlan: true,
			PlanName:   &planName,
			PeriodEnd:  &periodEnd,
		}, nil).Once()
	ca.On("FindByName", mock.Anything, planName).Return(plan, nil).Once()
	c.On("Put", cache.KeySubscription(uid), mock.MatchedBy(func(v any) bool {
		sub, ok := v.(*models.Subscription)
		return ok && sub.Status == models.StatusActive &&
			sub.PlanName == planName && sub.EndDate != nil
	}), cache.TTLSubscription).Return(nil).Once()
	c.On("Put", cache.KeyProfile(uid), mock.MatchedBy(func(v any) bool {
		profile, ok := v.(*models.UserProfile)
		return ok && profile.PlanActive && profile.PlanName != nil && *profile.PlanName == planName
	}), cache.TTLProfile).Return(nil).Once()
	cr.On("Refresh", mock.Anything, uid).Return(nil).Once()

	svc := newService(a, ca, cr, c)
	outcome, err := svc.Reconcile(context.Background(), uid)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	a.AssertExpectations(t)
	ca.AssertExpectations(t)
	cr.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestReconcile_NoActivePlanLeavesCacheUntouched(t *testing.T) {
	const uid = "user-2"
	a := new(AuthorityMock)
	ca := new(CatalogMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	// брошенный чекаут: активного плана нет, это не ошибка и не даунгрейд
	a.On("FetchSubscriptionStatus", mock.Anything, uid).
		Return(&authority.SubscriptionStatus{ActivePlan: false}, nil).Once()

	svc := newService(a, ca, cr, c)
	outcome, err := svc.Reconcile(context.Background(), uid)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeNoChange, outcome)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestReconcile_TransientFailureKeepsLastKnownGood(t *testing.T) {
	const uid = "user-3"
	a := new(AuthorityMock)
	ca := new(CatalogMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	a.On("FetchSubscriptionStatus", mock.Anything, uid).
		Return(nil, errors.New("dial tcp: connection refused"))

	svc := newService(a, ca, cr, c)
	outcome, err := svc.Reconcile(context.Background(), uid)

	assert.Error(t, err)
	assert.Equal(t, OutcomeError, outcome)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestReconcile_UnknownPlanIsError(t *testing.T) {
	const uid = "user-4"
	planName := "Legacy"
	a := new(AuthorityMock)
	ca := new(CatalogMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	a.On("FetchSubscriptionStatus", mock.Anything, uid).
		Return(&authority.SubscriptionStatus{ActivePlan: true, PlanName: &planName}, nil).Once()
	ca.On("FindByName", mock.Anything, planName).
		Return(nil, errors.New("plan not found")).Once()

	svc := newService(a, ca, cr, c)
	outcome, err := svc.Reconcile(context.Background(), uid)

	assert.Error(t, err)
	assert.Equal(t, OutcomeError, outcome)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_CreditRefreshFailureIsSoft(t *testing.T) {
	const uid = "user-5"
	planName := "Standard"
	plan := &models.Plan{ID: 2, Name: planName, Features: models.FeatureSet{Text: true, Audio: true}}

	a := new(AuthorityMock)
	ca := new(CatalogMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	a.On("FetchSubscriptionStatus", mock.Anything, uid).
		Return(&authority.SubscriptionStatus{ActivePlan: true, PlanName: &planName}, nil).Once()
	ca.On("FindByName", mock.Anything, planName).Return(plan, nil).Once()
	c.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()
	cr.On("Refresh", mock.Anything, uid).Return(errors.New("billing timeout")).Once()

	svc := newService(a, ca, cr, c)
	outcome, err := svc.Reconcile(context.Background(), uid)

	// подписка уже подтверждена, ошибка кредитов не роняет сверку
	assert.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
}

func TestParsePeriodEnd(t *testing.T) {
	assert.Nil(t, parsePeriodEnd(nil))

	bad := "not-a-date"
	assert.Nil(t, parsePeriodEnd(&bad))

	good := "2026-03-15T10:30:00Z"
	got := parsePeriodEnd(&good)
	assert.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), *got)
}
