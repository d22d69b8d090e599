package trial

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

type RepoMock struct{ mock.Mock }

func (m *RepoMock) StartTrial(ctx context.Context, userUID string, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, userUID, startedAt)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) GetTrial(ctx context.Context, userUID string) (*models.TrialState, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrialState), args.Error(1)
}

type CreditsMock struct{ mock.Mock }

func (m *CreditsMock) Init(ctx context.Context, userUID string) error {
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

func TestStart(t *testing.T) {
	const uid = "user-1"
	startedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setupMocks  func(r *RepoMock, cr *CreditsMock, c *CacheMock)
		wantStarted bool
		wantErr     bool
	}{
		{
			name: "first start initializes credits and caches state",
			setupMocks: func(r *RepoMock, cr *CreditsMock, c *CacheMock) {
				r.On("StartTrial", mock.Anything, uid, mock.Anything).Return(true, nil).Once()
				cr.On("Init", mock.Anything, uid).Return(nil).Once()
				r.On("GetTrial", mock.Anything, uid).
					Return(&models.TrialState{UserUID: uid, StartedAt: startedAt}, nil).Once()
				c.On("Put", cache.KeyTrial(uid), mock.Anything, cache.TTLTrial).Return(nil).Once()
			},
			wantStarted: true,
		},
		{
			name: "second start is a no-op",
			setupMocks: func(r *RepoMock, _ *CreditsMock, _ *CacheMock) {
				// кредиты уже заведены первым стартом, Init не ожидается
				r.On("StartTrial", mock.Anything, uid, mock.Anything).Return(false, nil).Once()
			},
			wantStarted: false,
		},
		{
			name: "credit init failure fails the start",
			setupMocks: func(r *RepoMock, cr *CreditsMock, _ *CacheMock) {
				r.On("StartTrial", mock.Anything, uid, mock.Anything).Return(true, nil).Once()
				cr.On("Init", mock.Anything, uid).Return(errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name: "repository failure",
			setupMocks: func(r *RepoMock, _ *CreditsMock, _ *CacheMock) {
				r.On("StartTrial", mock.Anything, uid, mock.Anything).
					Return(false, errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			cr := new(CreditsMock)
			c := new(CacheMock)
			tt.setupMocks(r, cr, c)

			svc := New(r, cr, c, newNoopLogger())
			started, err := svc.Start(context.Background(), uid)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantStarted, started)
			}
			r.AssertExpectations(t)
			cr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestStatus_CacheHitSkipsRepository(t *testing.T) {
	const uid = "user-2"
	r := new(RepoMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyTrial(uid), cache.TTLTrial, mock.Anything).
		Run(func(args mock.Arguments) {
			state := args.Get(2).(*models.TrialState)
			*state = models.TrialState{UserUID: uid, StartedAt: time.Now()}
		}).Return(true, nil).Once()

	svc := New(r, cr, c, newNoopLogger())
	state, err := svc.Status(context.Background(), uid)

	assert.NoError(t, err)
	assert.NotNil(t, state)
	r.AssertNotCalled(t, "GetTrial", mock.Anything, mock.Anything)
}

func TestStatus_NeverStarted(t *testing.T) {
	const uid = "user-3"
	r := new(RepoMock)
	cr := new(CreditsMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyTrial(uid), cache.TTLTrial, mock.Anything).Return(false, nil).Once()
	r.On("GetTrial", mock.Anything, uid).Return(nil, nil).Once()

	svc := New(r, cr, c, newNoopLogger())
	state, err := svc.Status(context.Background(), uid)

	assert.NoError(t, err)
	assert.Nil(t, state)
	c.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestIsActive_Boundary(t *testing.T) {
	const uid = "user-4"
	started := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := &models.TrialState{UserUID: uid, StartedAt: started}

	svc := New(new(RepoMock), new(CreditsMock), new(CacheMock), newNoopLogger())

	// за секунду до истечения ещё активен
	svc.now = func() time.Time { return started.Add(models.TrialDuration - time.Second) }
	assert.True(t, svc.IsActive(state))
	assert.Equal(t, 1, svc.HoursRemaining(state))

	// ровно на границе уже нет
	svc.now = func() time.Time { return started.Add(models.TrialDuration) }
	assert.False(t, svc.IsActive(state))
	assert.Equal(t, 0, svc.HoursRemaining(state))

	// сразу после старта остаток полный
	svc.now = func() time.Time { return started }
	assert.True(t, svc.IsActive(state))
	assert.Equal(t, 72, svc.HoursRemaining(state))
}
