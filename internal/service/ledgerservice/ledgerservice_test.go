package ledgerservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

type mocks struct {
	tx     *pg.MockTXManager
	users  *MockUserRepo
	ledger *MockLedgerRepo
	cache  *MockBalanceCache
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		tx:     pg.NewMockTXManager(ctrl),
		users:  NewMockUserRepo(ctrl),
		ledger: NewMockLedgerRepo(ctrl),
		cache:  NewMockBalanceCache(ctrl),
	}
	m.tx.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		AnyTimes()
	return New(m.tx, m.users, m.ledger, m.cache), m
}

func TestGrant(t *testing.T) {
	key := "spin:abc"
	existing := &domain.RewardGrant{ID: 5, UserID: 1, Reason: domain.ReasonSpin, Amount: 10, IdempotencyKey: &key}

	tests := []struct {
		name        string
		req         domain.GrantRequest
		prepareMock func(m *mocks)
		wantBalance int64
		wantReplay  bool
		wantErr     error
	}{
		{
			name: "credits new grant",
			req:  domain.GrantRequest{UserID: 1, Reason: domain.ReasonSpin, Amount: 10, IdempotencyKey: key},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 100}, nil)
				m.ledger.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(nil, nil)
				m.ledger.EXPECT().CreateGrant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, g *domain.RewardGrant) (bool, error) {
						assert.Equal(t, key, *g.IdempotencyKey)
						g.ID = 5
						return true, nil
					})
				m.users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(110)).Return(nil)
				m.ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, tx *domain.WalletTx) error {
						assert.Equal(t, domain.Credit, tx.Direction)
						assert.Equal(t, int64(10), tx.Amount)
						assert.Equal(t, int64(110), tx.BalanceAfter)
						assert.Equal(t, domain.OriginSpin, tx.Origin)
						assert.Equal(t, domain.RefGrant, *tx.ReferenceType)
						assert.Equal(t, int64(5), *tx.ReferenceID)
						return nil
					})
				m.cache.EXPECT().Invalidate(gomock.Any(), int64(1))
			},
			wantBalance: 110,
		},
		{
			name: "grant without key",
			req:  domain.GrantRequest{UserID: 1, Reason: domain.ReasonAdmin, Amount: 0},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 7}, nil)
				m.ledger.EXPECT().CreateGrant(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, g *domain.RewardGrant) (bool, error) {
						assert.Nil(t, g.IdempotencyKey)
						return true, nil
					})
				m.users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(7)).Return(nil)
				m.ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Invalidate(gomock.Any(), int64(1))
			},
			wantBalance: 7,
		},
		{
			name: "recorded key replays original balance",
			req:  domain.GrantRequest{UserID: 1, Reason: domain.ReasonSpin, Amount: 10, IdempotencyKey: key},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 130}, nil)
				m.ledger.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(existing, nil)
				m.ledger.EXPECT().FindTxByReference(gomock.Any(), domain.RefGrant, int64(5)).
					Return(&domain.WalletTx{BalanceAfter: 110}, nil)
			},
			wantBalance: 110,
			wantReplay:  true,
		},
		{
			name: "concurrent insert of the same key replays",
			req:  domain.GrantRequest{UserID: 1, Reason: domain.ReasonSpin, Amount: 10, IdempotencyKey: key},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 110}, nil)
				gomock.InOrder(
					m.ledger.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(nil, nil),
					m.ledger.EXPECT().CreateGrant(gomock.Any(), gomock.Any()).Return(false, nil),
					m.ledger.EXPECT().FindGrantByIdempotencyKey(gomock.Any(), key).Return(existing, nil),
				)
				m.ledger.EXPECT().FindTxByReference(gomock.Any(), domain.RefGrant, int64(5)).Return(nil, nil)
			},
			wantBalance: 110,
			wantReplay:  true,
		},
		{
			name:        "negative amount",
			req:         domain.GrantRequest{UserID: 1, Reason: domain.ReasonSpin, Amount: -1},
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name:        "unknown reason",
			req:         domain.GrantRequest{UserID: 1, Reason: "gift", Amount: 1},
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
		{
			name: "missing user",
			req:  domain.GrantRequest{UserID: 2, Reason: domain.ReasonSpin, Amount: 1},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(2)).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "wallet tx failure",
			req:  domain.GrantRequest{UserID: 1, Reason: domain.ReasonStreak, Amount: 5},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1}, nil)
				m.ledger.EXPECT().CreateGrant(gomock.Any(), gomock.Any()).Return(true, nil)
				m.users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(5)).Return(nil)
				m.ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			result, err := service.Grant(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrValidation) || errors.Is(tt.wantErr, domain.ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, result.BalanceAfter)
			assert.Equal(t, tt.wantReplay, result.Replayed)
		})
	}
}

func TestNewWithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	tx := pg.NewMockTXManager(ctrl)
	users := NewMockUserRepo(ctrl)
	ledger := NewMockLedgerRepo(ctrl)
	tx.EXPECT().Begin(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) }).
		AnyTimes()
	service := New(tx, users, ledger, nil)

	users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 20}, nil).Times(2)
	ledger.EXPECT().CreateGrant(gomock.Any(), gomock.Any()).Return(true, nil)
	users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(25)).Return(nil)
	users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(15)).Return(nil)
	ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	granted, err := service.Grant(context.Background(), domain.GrantRequest{UserID: 1, Reason: domain.ReasonStreak, Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(25), granted.BalanceAfter)

	balance, err := service.Debit(context.Background(), domain.DebitRequest{UserID: 1, Amount: 5, Origin: domain.OriginWithdrawal})
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)
}

func TestDebit(t *testing.T) {
	tests := []struct {
		name        string
		req         domain.DebitRequest
		prepareMock func(m *mocks)
		wantBalance int64
		wantErr     error
	}{
		{
			name: "debits balance",
			req:  domain.DebitRequest{UserID: 1, Amount: 1000, Origin: domain.OriginWithdrawal, ReferenceType: domain.RefWithdrawal, ReferenceID: 3},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 1500}, nil)
				m.users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(500)).Return(nil)
				m.ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, tx *domain.WalletTx) error {
						assert.Equal(t, domain.Debit, tx.Direction)
						assert.Equal(t, int64(500), tx.BalanceAfter)
						assert.Equal(t, domain.RefWithdrawal, *tx.ReferenceType)
						assert.Equal(t, int64(3), *tx.ReferenceID)
						return nil
					})
				m.cache.EXPECT().Invalidate(gomock.Any(), int64(1))
			},
			wantBalance: 500,
		},
		{
			name: "whole balance",
			req:  domain.DebitRequest{UserID: 1, Amount: 1500, Origin: domain.OriginAdmin},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 1500}, nil)
				m.users.EXPECT().UpdateCoins(gomock.Any(), int64(1), int64(0)).Return(nil)
				m.ledger.EXPECT().CreateTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, tx *domain.WalletTx) error {
						assert.Nil(t, tx.ReferenceType)
						return nil
					})
				m.cache.EXPECT().Invalidate(gomock.Any(), int64(1))
			},
			wantBalance: 0,
		},
		{
			name: "insufficient balance",
			req:  domain.DebitRequest{UserID: 1, Amount: 1501, Origin: domain.OriginWithdrawal},
			prepareMock: func(m *mocks) {
				m.users.EXPECT().GetForUpdate(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 1500}, nil)
			},
			wantErr: domain.ErrInsufficientBalance,
		},
		{
			name:        "zero amount",
			req:         domain.DebitRequest{UserID: 1, Amount: 0},
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			tt.prepareMock(m)

			balance, err := service.Debit(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, balance)
		})
	}
}

func TestVerify(t *testing.T) {
	service, m := NewMock(t)

	m.users.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.User{ID: 1, Coins: 40}, nil).Times(2)
	m.ledger.EXPECT().LedgerBalance(gomock.Any(), int64(1)).Return(int64(40), nil)
	m.ledger.EXPECT().LedgerBalance(gomock.Any(), int64(1)).Return(int64(35), nil)
	m.users.EXPECT().FindByID(gomock.Any(), int64(2)).Return(nil, nil)

	drift, err := service.Verify(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, drift.Balanced())

	drift, err = service.Verify(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, drift.Balanced())
	assert.Equal(t, int64(35), drift.LedgerAmount)

	_, err = service.Verify(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
