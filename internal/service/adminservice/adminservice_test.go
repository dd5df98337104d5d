package adminservice

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
)

type mocks struct {
	users       *MockUserRepo
	stats       *MockStatsRepo
	withdrawals *MockWithdrawals
	economy     *MockEconomy
	ledger      *MockLedger
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		AnyTimes()
	m := &mocks{
		users:       NewMockUserRepo(ctrl),
		stats:       NewMockStatsRepo(ctrl),
		withdrawals: NewMockWithdrawals(ctrl),
		economy:     NewMockEconomy(ctrl),
		ledger:      NewMockLedger(ctrl),
	}
	service := New(txManager, m.users, m.stats, m.withdrawals, m.economy, m.ledger, time.UTC)
	service.now = func() time.Time { return time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC) }
	return service, m
}

func TestListUsers(t *testing.T) {
	service, m := NewMock(t)
	m.users.EXPECT().List(gomock.Any(), "bob", domain.PageRequest{Page: 1, Limit: domain.DefaultPageLimit}).
		Return([]domain.User{{ID: 1, Email: "bob@example.com"}}, 21, nil)

	got, err := service.ListUsers(context.Background(), "  bob ", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 21, got.Total)
	assert.Equal(t, 2, got.Pages)
	assert.Len(t, got.Items, 1)
}

func TestSetFlag(t *testing.T) {
	tests := []struct {
		name        string
		flag        domain.UserFlag
		on          bool
		prepareMock func(m *mocks)
		want        *domain.User
		wantErr     error
	}{
		{
			name: "block keeps shadow ban",
			flag: domain.FlagBlocked,
			on:   true,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(5)).Return(&domain.User{ID: 5, ShadowBanned: true}, nil)
				m.users.EXPECT().SetFlags(gomock.Any(), int64(5), true, true).Return(nil)
			},
			want: &domain.User{ID: 5, Blocked: true, ShadowBanned: true},
		},
		{
			name: "unblock",
			flag: domain.FlagBlocked,
			on:   false,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(5)).Return(&domain.User{ID: 5, Blocked: true}, nil)
				m.users.EXPECT().SetFlags(gomock.Any(), int64(5), false, false).Return(nil)
			},
			want: &domain.User{ID: 5},
		},
		{
			name: "shadow ban",
			flag: domain.FlagShadowBanned,
			on:   true,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(5)).Return(&domain.User{ID: 5}, nil)
				m.users.EXPECT().SetFlags(gomock.Any(), int64(5), false, true).Return(nil)
			},
			want: &domain.User{ID: 5, ShadowBanned: true},
		},
		{
			name: "unknown user",
			flag: domain.FlagBlocked,
			on:   true,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(5)).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "unknown flag",
			flag: domain.UserFlag("vip"),
			on:   true,
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(5)).Return(&domain.User{ID: 5}, nil)
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			got, err := service.SetFlag(context.Background(), 1, 5, tt.flag, tt.on)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrant(t *testing.T) {
	tests := []struct {
		name        string
		in          domain.AdminGrant
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name: "credits through the ledger",
			in:   domain.AdminGrant{UserID: 3, Amount: 100, IdempotencyKey: "ticket-42", Note: "support"},
			prepareMock: func(m *mocks) {
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
						assert.Equal(t, domain.ReasonAdmin, req.Reason)
						assert.Equal(t, "admin:ticket-42", req.IdempotencyKey)
						assert.Equal(t, int64(100), req.Amount)
						return &domain.GrantResult{BalanceAfter: 100}, nil
					})
			},
		},
		{
			name:        "missing key",
			in:          domain.AdminGrant{UserID: 3, Amount: 100},
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "non positive amount",
			in:          domain.AdminGrant{UserID: 3, IdempotencyKey: "k"},
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name: "ledger failure",
			in:   domain.AdminGrant{UserID: 3, Amount: 1, IdempotencyKey: "k"},
			prepareMock: func(m *mocks) {
				m.ledger.EXPECT().Grant(gomock.Any(), gomock.Any()).Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			_, err := service.Grant(context.Background(), 1, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWithdrawalDelegation(t *testing.T) {
	service, m := NewMock(t)
	m.withdrawals.EXPECT().Approve(gomock.Any(), int64(10), int64(1)).Return(&domain.WithdrawalRequest{ID: 10, Status: domain.WithdrawalApproved}, nil)
	m.withdrawals.EXPECT().Reject(gomock.Any(), int64(11), "fraud", int64(1)).Return(&domain.WithdrawalRequest{ID: 11, Status: domain.WithdrawalRejected}, nil)
	m.withdrawals.EXPECT().ListForAdmin(gomock.Any(), domain.WithdrawalPending, domain.PageRequest{Page: 2}).Return(&domain.Page[domain.WithdrawalView]{Page: 2}, nil)

	approved, err := service.ApproveWithdrawal(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, approved.Status)

	rejected, err := service.RejectWithdrawal(context.Background(), 1, 11, "fraud")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, rejected.Status)

	page, err := service.Withdrawals(context.Background(), domain.WithdrawalPending, domain.PageRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
}

func TestStats(t *testing.T) {
	service, m := NewMock(t)
	m.stats.EXPECT().Dashboard(gomock.Any(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)).
		Return(&domain.DashboardStats{TotalUsers: 4}, nil)

	got, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.TotalUsers)

	m.stats.EXPECT().Dashboard(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	_, err = service.Stats(context.Background())
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	service, m := NewMock(t)
	cfg := domain.DefaultEconomyConfig()
	m.economy.EXPECT().Get(gomock.Any()).Return(cfg, nil)
	m.economy.EXPECT().Update(gomock.Any(), int64(1), cfg, int64(0)).Return(&domain.EconomyConfig{Version: 1}, nil)
	m.economy.EXPECT().Update(gomock.Any(), int64(1), cfg, int64(0)).Return(nil, domain.ErrConflict)

	got, err := service.Config(context.Background())
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	updated, err := service.UpdateConfig(context.Background(), 1, cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	_, err = service.UpdateConfig(context.Background(), 1, cfg, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
