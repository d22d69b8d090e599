package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

type AuthorityMock struct{ mock.Mock }

func (m *AuthorityMock) FetchPlans(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Plan), args.Error(1)
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

func testPlans() []models.Plan {
	return []models.Plan{
		{ID: 1, Name: "Free", Features: models.FeatureSet{Text: true}},
		{ID: 2, Name: "Standard", Price: 29900, Features: models.FeatureSet{Text: true, Audio: true}},
		{ID: 3, Name: "Premium", Price: 49900, Features: models.FeatureSet{Text: true, Audio: true, Premium: true}},
	}
}

func TestLoad_FetchesAndWritesThrough(t *testing.T) {
	a := new(AuthorityMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyCatalog(), cache.TTLCatalog, mock.Anything).Return(false, nil).Once()
	a.On("FetchPlans", mock.Anything).Return(testPlans(), nil).Once()
	c.On("Put", cache.KeyCatalog(), mock.Anything, cache.TTLCatalog).Return(nil).Once()

	svc := New(a, c, newNoopLogger())
	plans, err := svc.Load(context.Background())

	assert.NoError(t, err)
	assert.Len(t, plans, 3)
	a.AssertExpectations(t)
	c.AssertExpectations(t)

	// повторный Load обслуживается горячим кешем без новых обращений
	plans, err = svc.Load(context.Background())
	assert.NoError(t, err)
	assert.Len(t, plans, 3)
	a.AssertNumberOfCalls(t, "FetchPlans", 1)
	c.AssertNumberOfCalls(t, "Get", 1)
}

func TestLoad_RedisHitSkipsAuthority(t *testing.T) {
	a := new(AuthorityMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyCatalog(), cache.TTLCatalog, mock.Anything).
		Run(func(args mock.Arguments) {
			plans := args.Get(2).(*[]models.Plan)
			*plans = testPlans()
		}).Return(true, nil).Once()

	svc := New(a, c, newNoopLogger())
	plans, err := svc.Load(context.Background())

	assert.NoError(t, err)
	assert.Len(t, plans, 3)
	a.AssertNotCalled(t, "FetchPlans", mock.Anything)
}

func TestLoad_EmptyCacheAndDeadAuthority(t *testing.T) {
	a := new(AuthorityMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyCatalog(), cache.TTLCatalog, mock.Anything).Return(false, nil).Once()
	a.On("FetchPlans", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	svc := New(a, c, newNoopLogger())
	plans, err := svc.Load(context.Background())

	assert.Nil(t, plans)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindByName(t *testing.T) {
	tests := []struct {
		name    string
		lookup  string
		wantID  int
		wantErr error
	}{
		{name: "exact match", lookup: "Premium", wantID: 3},
		{name: "case insensitive", lookup: "premium", wantID: 3},
		{name: "unknown plan", lookup: "Legacy", wantErr: ErrPlanNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(AuthorityMock)
			c := new(CacheMock)
			c.On("Get", cache.KeyCatalog(), cache.TTLCatalog, mock.Anything).
				Run(func(args mock.Arguments) {
					plans := args.Get(2).(*[]models.Plan)
					*plans = testPlans()
				}).Return(true, nil).Once()

			svc := New(a, c, newNoopLogger())
			plan, err := svc.FindByName(context.Background(), tt.lookup)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, plan)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, plan.ID)
			}
		})
	}
}

func TestInvalidate(t *testing.T) {
	a := new(AuthorityMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyCatalog(), cache.TTLCatalog, mock.Anything).Return(false, nil).Twice()
	a.On("FetchPlans", mock.Anything).Return(testPlans(), nil).Twice()
	c.On("Put", cache.KeyCatalog(), mock.Anything, cache.TTLCatalog).Return(nil).Twice()
	c.On("Invalidate", cache.KeyCatalog()).Return(nil).Once()

	svc := New(a, c, newNoopLogger())
	_, err := svc.Load(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, svc.Invalidate())

	// после сброса загрузка снова идёт в биллинг
	_, err = svc.Load(context.Background())
	assert.NoError(t, err)
	a.AssertNumberOfCalls(t, "FetchPlans", 2)
}
