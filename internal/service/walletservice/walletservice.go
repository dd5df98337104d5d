package walletservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

type LedgerRepo interface {
	ListTxByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WalletTx, int, error)
}

// Cache reports a fill version on a miss; Set drops the fill if the balance
// was invalidated after that version was read.
type Cache interface {
	Get(ctx context.Context, userID int64) (coins int64, version int64, ok bool)
	Set(ctx context.Context, userID int64, coins int64, version int64)
}

type Service struct {
	users  UserRepo
	ledger LedgerRepo
	cache  Cache
	now    func() time.Time
}

func New(users UserRepo, ledger LedgerRepo, cache Cache) *Service {
	return &Service{
		users:  users,
		ledger: ledger,
		cache:  cache,
		now:    time.Now,
	}
}

func (s *Service) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	coins, version, ok := s.cache.Get(ctx, userID)
	if ok {
		return &domain.Wallet{UserID: userID, Coins: coins, LastUpdated: s.now()}, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get wallet", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	s.cache.Set(ctx, userID, user.Coins, version)
	return &domain.Wallet{UserID: userID, Coins: user.Coins, LastUpdated: s.now()}, nil
}

func (s *Service) GetTransactions(ctx context.Context, userID int64, page domain.PageRequest) (*domain.Page[domain.WalletTx], error) {
	page = page.Normalize()
	txs, total, err := s.ledger.ListTxByUser(ctx, userID, page)
	if err != nil {
		zap.L().Error("failed to fetch transactions", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	result := domain.NewPage(txs, page, total)
	return &result, nil
}
