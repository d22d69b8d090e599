package credits

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

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetBalance(ctx context.Context, userUID, creditType string) (int, error) {
	args := m.Called(ctx, userUID, creditType)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) ConsumeBalance(ctx context.Context, userUID, creditType string, amount int) (int, bool, error) {
	args := m.Called(ctx, userUID, creditType, amount)
	return args.Int(0), args.Bool(1), args.Error(2)
}
func (m *RepoMock) SetBalance(ctx context.Context, userUID, creditType string, balance int, reason string) error {
	return m.Called(ctx, userUID, creditType, balance, reason).Error(0)
}
func (m *RepoMock) InitBalances(ctx context.Context, userUID string, initial map[string]int) error {
	return m.Called(ctx, userUID, initial).Error(0)
}

type AuthorityMock struct{ mock.Mock }

func (m *AuthorityMock) FetchCreditBalances(ctx context.Context, userUID string) (*authority.CreditBalances, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authority.CreditBalances), args.Error(1)
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

func TestConsume(t *testing.T) {
	const uid = "user-1"

	tests := []struct {
		name         string
		amount       int
		setupMocks   func(r *RepoMock, c *CacheMock)
		wantConsumed bool
		wantBalance  int
		wantErr      bool
	}{
		{
			name:   "success consume",
			amount: 1,
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("ConsumeBalance", mock.Anything, uid, models.CreditVoice, 1).
					Return(9, true, nil).Once()
				c.On("Put", cache.KeyCredits(uid, models.CreditVoice), mock.Anything, cache.TTLCredits).
					Return(nil).Once()
			},
			wantConsumed: true,
			wantBalance:  9,
		},
		{
			name:   "insufficient balance leaves it untouched",
			amount: 5,
			setupMocks: func(r *RepoMock, c *CacheMock) {
				r.On("ConsumeBalance", mock.Anything, uid, models.CreditVoice, 5).
					Return(0, false, nil).Once()
				// неудачная попытка отвечает текущим остатком
				c.On("Get", cache.KeyCredits(uid, models.CreditVoice), cache.TTLCredits, mock.Anything).
					Run(func(args mock.Arguments) {
						b := args.Get(2).(*models.CreditBalance)
						*b = models.CreditBalance{UserUID: uid, CreditType: models.CreditVoice, Count: 3}
					}).Return(true, nil).Once()
			},
			wantConsumed: false,
			wantBalance:  3,
		},
		{
			name:   "repository failure",
			amount: 1,
			setupMocks: func(r *RepoMock, _ *CacheMock) {
				r.On("ConsumeBalance", mock.Anything, uid, models.CreditVoice, 1).
					Return(0, false, errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			a := new(AuthorityMock)
			c := new(CacheMock)
			tt.setupMocks(r, c)

			svc := New(r, a, c, newNoopLogger())
			consumed, balance, err := svc.Consume(context.Background(), uid, models.CreditVoice, tt.amount)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantConsumed, consumed)
				assert.Equal(t, tt.wantBalance, balance)
			}
			r.AssertExpectations(t)
			c.AssertExpectations(t)
			// биллинг при списании не трогается
			a.AssertNotCalled(t, "FetchCreditBalances", mock.Anything, mock.Anything)
		})
	}
}

func TestConsume_FailedAttemptIsRepeatable(t *testing.T) {
	const uid = "user-2"
	r := new(RepoMock)
	a := new(AuthorityMock)
	c := new(CacheMock)

	r.On("ConsumeBalance", mock.Anything, uid, models.CreditGift, 10).
		Return(0, false, nil).Twice()
	c.On("Get", cache.KeyCredits(uid, models.CreditGift), cache.TTLCredits, mock.Anything).
		Run(func(args mock.Arguments) {
			b := args.Get(2).(*models.CreditBalance)
			*b = models.CreditBalance{UserUID: uid, CreditType: models.CreditGift, Count: 2}
		}).Return(true, nil).Twice()

	svc := New(r, a, c, newNoopLogger())

	// два одинаковых неудачных списания: остаток не меняется
	for i := 0; i < 2; i++ {
		consumed, balance, err := svc.Consume(context.Background(), uid, models.CreditGift, 10)
		assert.NoError(t, err)
		assert.False(t, consumed)
		assert.Equal(t, 2, balance)
	}
	r.AssertExpectations(t)
}

func TestRefresh(t *testing.T) {
	const uid = "user-3"

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, a *AuthorityMock, c *CacheMock)
		wantErr    bool
	}{
		{
			name: "success overwrites storage and cache",
			setupMocks: func(r *RepoMock, a *AuthorityMock, c *CacheMock) {
				a.On("FetchCreditBalances", mock.Anything, uid).
					Return(&authority.CreditBalances{Balances: map[string]int{
						models.CreditVoice: 25,
					}}, nil).Once()
				r.On("SetBalance", mock.Anything, uid, models.CreditVoice, 25, "refresh").
					Return(nil).Once()
				c.On("Put", cache.KeyCredits(uid, models.CreditVoice), mock.Anything, cache.TTLCredits).
					Return(nil).Once()
			},
		},
		{
			name: "authority unreachable",
			setupMocks: func(_ *RepoMock, a *AuthorityMock, _ *CacheMock) {
				a.On("FetchCreditBalances", mock.Anything, uid).
					Return(nil, errors.New("giving up after 4 attempt(s)")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(RepoMock)
			a := new(AuthorityMock)
			c := new(CacheMock)
			tt.setupMocks(r, a, c)

			svc := New(r, a, c, newNoopLogger())
			err := svc.Refresh(context.Background(), uid)

			if tt.wantErr {
				assert.Error(t, err)
				r.AssertNotCalled(t, "SetBalance",
					mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			r.AssertExpectations(t)
			a.AssertExpectations(t)
		})
	}
}

func TestBalance_CacheMissReadsRepoAndBackfills(t *testing.T) {
	const uid = "user-4"
	r := new(RepoMock)
	a := new(AuthorityMock)
	c := new(CacheMock)

	c.On("Get", cache.KeyCredits(uid, models.CreditVoice), cache.TTLCredits, mock.Anything).
		Return(false, nil).Once()
	r.On("GetBalance", mock.Anything, uid, models.CreditVoice).Return(7, nil).Once()
	c.On("Put", cache.KeyCredits(uid, models.CreditVoice), mock.Anything, cache.TTLCredits).
		Return(nil).Once()

	svc := New(r, a, c, newNoopLogger())
	balance, err := svc.Balance(context.Background(), uid, models.CreditVoice)

	assert.NoError(t, err)
	assert.Equal(t, 7, balance)
	c.AssertExpectations(t)
}

func TestInit(t *testing.T) {
	const uid = "user-5"
	r := new(RepoMock)
	r.On("InitBalances", mock.Anything, uid, DefaultInitialBalances).Return(nil).Once()

	svc := New(r, new(AuthorityMock), new(CacheMock), newNoopLogger())
	assert.NoError(t, svc.Init(context.Background(), uid))
	r.AssertExpectations(t)
}
