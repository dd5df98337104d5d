package adsservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const secret = "ssv-secret"

type mocks struct {
	users   *MockUserRepo
	grants  *MockGrantRepo
	economy *MockEconomy
	ledger  *MockLedger
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		AnyTimes()
	m := &mocks{
		users:   NewMockUserRepo(ctrl),
		grants:  NewMockGrantRepo(ctrl),
		economy: NewMockEconomy(ctrl),
		ledger:  NewMockLedger(ctrl),
	}
	service := New(txManager, m.users, m.grants, m.economy, m.ledger, secret, []string{"rewarded_spin"}, time.UTC)
	service.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return service, m
}

func signed(cb domain.SSVCallback) domain.SSVCallback {
	cb.Signature = Sign([]byte(secret), cb)
	return cb
}

func TestVerify(t *testing.T) {
	cfg := domain.DefaultEconomyConfig()
	base := domain.SSVCallback{UserID: 1, AdUnitID: "rewarded_spin", RewardAmount: 5, RewardType: "coins", Timestamp: "1714564800"}
	key := "ssv:1:rewarded_spin:1714564800"
	dayStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		cb          domain.SSVCallback
		prepareMock func(m *mocks)
		want        *domain.GrantResult
		wantErr     error
	}{
		{
			name: "valid callback credits reward",
			cb:   signed(base),
			prepareMock: func(m *mocks) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1}, nil)
				m.grants.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(nil, nil)
				m.grants.EXPECT().CountGrantsSince(gomock.Any(), int64(1), domain.ReasonRewardedAd, dayStart).Return(0, nil)
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
						assert.Equal(t, key, req.IdempotencyKey)
						assert.Equal(t, domain.ReasonRewardedAd, req.Reason)
						assert.Equal(t, cfg.Rewards.RewardedAd, req.Amount)
						return &domain.GrantResult{BalanceAfter: 5}, nil
					})
			},
			want: &domain.GrantResult{BalanceAfter: 5},
		},
		{
			name: "replayed callback skips cap check",
			cb:   signed(base),
			prepareMock: func(m *mocks) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 5}, nil)
				m.grants.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(&domain.RewardGrant{ID: 3}, nil)
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).Return(&domain.GrantResult{BalanceAfter: 5, Replayed: true}, nil)
			},
			want: &domain.GrantResult{BalanceAfter: 5, Replayed: true},
		},
		{
			name:        "tampered amount",
			cb:          func() domain.SSVCallback { cb := signed(base); cb.RewardAmount = 500; return cb }(),
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "non hex signature",
			cb:          func() domain.SSVCallback { cb := base; cb.Signature = "zz"; return cb }(),
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "unknown ad unit",
			cb:          signed(domain.SSVCallback{UserID: 1, AdUnitID: "banner", Timestamp: "1"}),
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name: "daily cap reached",
			cb:   signed(base),
			prepareMock: func(m *mocks) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1}, nil)
				m.grants.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(nil, nil)
				m.grants.EXPECT().CountGrantsSince(gomock.Any(), int64(1), domain.ReasonRewardedAd, dayStart).Return(cfg.Caps.MaxRewardedPerDay, nil)
			},
			wantErr: domain.ErrCapExceeded,
		},
		{
			name: "restricted user",
			cb:   signed(base),
			prepareMock: func(m *mocks) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Blocked: true}, nil)
				m.grants.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(nil, nil)
			},
			wantErr: domain.ErrForbidden,
		},
		{
			name: "unknown user",
			cb:   signed(base),
			prepareMock: func(m *mocks) {
				m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			got, err := service.Verify(context.Background(), tt.cb)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
