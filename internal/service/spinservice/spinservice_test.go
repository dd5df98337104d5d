package spinservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/pkg/auth"
)

type fixedSource int64

func (f fixedSource) Int64N(n int64) int64 { return int64(f) % n }

type mocks struct {
	tx       *pg.MockTXManager
	users    *MockUserRepo
	spins    *MockSpinRepo
	earnings *MockEarningsRepo
	economy  *MockEconomy
	ledger   *MockLedger
	tokens   *auth.SpinTokenService
}

var (
	now      = time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	dayStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	player   = &domain.User{ID: 1, Email: "player@example.com", Coins: 100}
)

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		tx:       pg.NewMockTXManager(ctrl),
		users:    NewMockUserRepo(ctrl),
		spins:    NewMockSpinRepo(ctrl),
		earnings: NewMockEarningsRepo(ctrl),
		economy:  NewMockEconomy(ctrl),
		ledger:   NewMockLedger(ctrl),
		tokens:   auth.NewSpinTokenService("spin-secret"),
	}
	m.tx.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		AnyTimes()
	service := New(m.tx, m.users, m.spins, m.earnings, m.economy, m.ledger, m.tokens, Options{
		TokenTTL: time.Minute,
		Location: time.UTC,
		Source:   fixedSource(0),
	})
	service.now = func() time.Time { return now }
	return service, m
}

func expectUsage(m *mocks, stats *domain.SpinStats, coinsToday int64) {
	m.spins.EXPECT().Stats(gomock.Any(), int64(1), dayStart).Return(stats, nil)
	m.earnings.EXPECT().CoinsEarnedSince(gomock.Any(), int64(1), dayStart).Return(coinsToday, nil)
}

func TestStart(t *testing.T) {
	cfg := domain.DefaultEconomyConfig()
	recent := now.Add(-10 * time.Second)
	old := now.Add(-time.Hour)

	tests := []struct {
		name        string
		method      domain.SpinMethod
		prepareMock func(m *mocks)
		wantErr     []error
	}{
		{
			name:   "first spin of the day",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{LastSpinAt: &old}, 0)
			},
		},
		{
			name:   "blocked user",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Blocked: true}, nil)
			},
			wantErr: []error{domain.ErrForbidden},
		},
		{
			name:   "shadow banned user",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, ShadowBanned: true}, nil)
			},
			wantErr: []error{domain.ErrForbidden},
		},
		{
			name:   "51st spin of the day",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 50, LastSpinAt: &old}, 100)
			},
			wantErr: []error{domain.ErrCapExceeded},
		},
		{
			name:   "rewarded limit reached",
			method: domain.SpinRewarded,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 20, RewardedToday: 20, LastSpinAt: &old}, 100)
			},
			wantErr: []error{domain.ErrCapExceeded},
		},
		{
			name:   "rewarded limit ignored for free spins",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 20, RewardedToday: 20, LastSpinAt: &old}, 100)
			},
		},
		{
			name:   "cooldown",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 1, LastSpinAt: &recent}, 10)
			},
			wantErr: []error{domain.ErrCapExceeded, domain.ErrCooldown},
		},
		{
			name:   "daily coin cap",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 3, LastSpinAt: &old}, 500)
			},
			wantErr: []error{domain.ErrCapExceeded},
		},
		{
			name:        "unknown method",
			method:      "paid",
			prepareMock: func(m *mocks) {},
			wantErr:     []error{domain.ErrValidation},
		},
		{
			name:   "missing user",
			method: domain.SpinFree,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(nil, nil)
			},
			wantErr: []error{domain.ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			result, err := service.Start(context.Background(), 1, tt.method, domain.DeviceInfo{DeviceID: "dev"})
			if len(tt.wantErr) > 0 {
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "10", result.Outcome)
			assert.Equal(t, int64(10), result.Coins)

			claims, signature, err := m.tokens.Verify(result.Token)
			require.NoError(t, err)
			assert.Equal(t, result.Signature, signature)
			assert.Equal(t, int64(1), claims.UserID)
			assert.Equal(t, "10", claims.Outcome)
			assert.Equal(t, int64(10), claims.Coins)
			assert.Equal(t, string(tt.method), claims.Method)
		})
	}
}

func TestTokenTTL(t *testing.T) {
	service, _ := NewMock(t)

	assert.Equal(t, 30*time.Second, service.ttl(domain.Caps{MinSecondsBetweenSpins: 30}))
	assert.Equal(t, time.Minute, service.ttl(domain.Caps{MinSecondsBetweenSpins: 120}))
	assert.Equal(t, time.Minute, service.ttl(domain.Caps{}))
}

func issue(t *testing.T, m *mocks, userID int64, method domain.SpinMethod, ttl time.Duration) (string, string) {
	token, err := m.tokens.Issue(auth.SpinIntent{
		UserID:        userID,
		Outcome:       "10",
		Coins:         10,
		Method:        string(method),
		ConfigVersion: 1,
	}, ttl)
	require.NoError(t, err)
	return token.Token, token.Signature
}

func TestConfirm(t *testing.T) {
	cfg := domain.DefaultEconomyConfig()
	old := now.Add(-time.Hour)

	tests := []struct {
		name        string
		tokenUser   int64
		tokenMethod domain.SpinMethod
		tokenTTL    time.Duration
		method      domain.SpinMethod
		prepareMock func(m *mocks, signature string)
		want        *domain.SpinConfirm
		wantErr     error
	}{
		{
			name:   "credits the committed outcome",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(player, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).Return(nil, nil)
				expectUsage(m, &domain.SpinStats{LastSpinAt: &old}, 0)
				m.spins.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, s *domain.SpinSession) (bool, error) {
						assert.Equal(t, "10", s.Outcome)
						assert.Equal(t, int64(10), s.Coins)
						assert.Equal(t, signature, s.Signature)
						assert.Equal(t, "dev", s.Device.DeviceID)
						s.ID = 77
						return true, nil
					})
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
						assert.Equal(t, domain.ReasonSpin, req.Reason)
						assert.Equal(t, int64(10), req.Amount)
						assert.Equal(t, "spin:"+signature, req.IdempotencyKey)
						assert.Equal(t, int64(77), req.Metadata["spinSessionId"])
						return &domain.GrantResult{BalanceAfter: 110}, nil
					})
			},
			want: &domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 110},
		},
		{
			name:        "rewarded spin books a rewarded-ad grant",
			tokenMethod: domain.SpinRewarded,
			method:      domain.SpinRewarded,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(player, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).Return(nil, nil)
				expectUsage(m, &domain.SpinStats{}, 0)
				m.spins.EXPECT().Create(gomock.Any(), gomock.Any()).Return(true, nil)
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
						assert.Equal(t, domain.ReasonRewardedAd, req.Reason)
						return &domain.GrantResult{BalanceAfter: 110}, nil
					})
			},
			want: &domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 110},
		},
		{
			name:   "second confirm replays the recorded balance",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 140}, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).
					Return(&domain.SpinSession{ID: 77, UserID: 1, Outcome: "10", Coins: 10, Signature: signature}, nil)
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).
					Return(&domain.GrantResult{BalanceAfter: 110, Replayed: true}, nil)
			},
			want: &domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 110, Replayed: true},
		},
		{
			name:   "caps exhausted between start and confirm",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(player, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).Return(nil, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 50, LastSpinAt: &old}, 100)
			},
			wantErr: domain.ErrCapExceeded,
		},
		{
			name:   "coins would pass the daily cap",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(player, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).Return(nil, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 5, LastSpinAt: &old}, 495)
			},
			wantErr: domain.ErrCapExceeded,
		},
		{
			name:   "user blocked after start",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Blocked: true}, nil)
			},
			wantErr: domain.ErrForbidden,
		},
		{
			name:        "token of another user",
			tokenUser:   2,
			method:      domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "method mismatch",
			tokenMethod: domain.SpinFree,
			method:      domain.SpinRewarded,
			prepareMock: func(m *mocks, signature string) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "expired token",
			tokenTTL:    -time.Minute,
			method:      domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:   "ledger failure",
			method: domain.SpinFree,
			prepareMock: func(m *mocks, signature string) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(player, nil)
				m.spins.EXPECT().FindBySignature(gomock.Any(), signature).Return(nil, nil)
				expectUsage(m, &domain.SpinStats{}, 0)
				m.spins.EXPECT().Create(gomock.Any(), gomock.Any()).Return(true, nil)
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).Return(nil, domain.ErrConflict)
			},
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tokenUser, tokenMethod, ttl := tt.tokenUser, tt.tokenMethod, tt.tokenTTL
			if tokenUser == 0 {
				tokenUser = 1
			}
			if tokenMethod == "" {
				tokenMethod = tt.method
			}
			if ttl == 0 {
				ttl = time.Minute
			}
			token, signature := issue(t, m, tokenUser, tokenMethod, ttl)
			tt.prepareMock(m, signature)

			result, err := service.Confirm(context.Background(), 1, token, tt.method, domain.DeviceInfo{DeviceID: "dev"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestConfirmGarbageToken(t *testing.T) {
	service, _ := NewMock(t)

	_, err := service.Confirm(context.Background(), 1, "not-a-token", domain.SpinFree, domain.DeviceInfo{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPrefetch(t *testing.T) {
	cfg := domain.DefaultEconomyConfig()
	recent := now.Add(-10 * time.Second)

	tests := []struct {
		name        string
		prepareMock func(m *mocks)
		wantCanSpin bool
		wantCool    int
		wantErr     error
	}{
		{
			name: "can spin",
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 3}, 20)
			},
			wantCanSpin: true,
		},
		{
			name: "cooling down",
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				expectUsage(m, &domain.SpinStats{SpinsToday: 3, LastSpinAt: &recent}, 20)
			},
			wantCool: 20,
		},
		{
			name: "restricted",
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, ShadowBanned: true}, nil)
			},
			wantErr: domain.ErrForbidden,
		},
		{
			name: "stats failure",
			prepareMock: func(m *mocks) {
				m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(player, nil)
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.spins.EXPECT().Stats(gomock.Any(), int64(1), dayStart).Return(nil, errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			result, err := service.Prefetch(context.Background(), 1)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCanSpin, result.CanSpin)
			assert.Equal(t, tt.wantCool, result.CooldownRemaining)
			assert.Equal(t, cfg.Caps, result.Caps)
			assert.Len(t, result.Outcomes, len(cfg.WheelWeights))
			assert.Equal(t, 3, result.SpinsToday)
			assert.Equal(t, int64(20), result.CoinsEarnedToday)
		})
	}
}
