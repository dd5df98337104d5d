package ledgerservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
)

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
	UpdateCoins(ctx context.Context, id int64, coins int64) error
}

type LedgerRepo interface {
	CreateGrant(ctx context.Context, g *domain.RewardGrant) (bool, error)
	FindGrantByIdempotencyKey(ctx context.Context, key string) (*domain.RewardGrant, error)
	CreateTx(ctx context.Context, tx *domain.WalletTx) error
	FindTxByReference(ctx context.Context, refType string, refID int64) (*domain.WalletTx, error)
	LedgerBalance(ctx context.Context, userID int64) (int64, error)
}

type BalanceCache interface {
	Invalidate(ctx context.Context, userID int64)
}

type noCache struct{}

func (noCache) Invalidate(context.Context, int64) {}

// Service is the only writer of user balances. Every balance change is
// paired with a wallet transaction in the same database transaction.
type Service struct {
	txManager pg.TXManager
	users     UserRepo
	ledger    LedgerRepo
	cache     BalanceCache
}

func New(txManager pg.TXManager, users UserRepo, ledger LedgerRepo, cache BalanceCache) *Service {
	if cache == nil {
		cache = noCache{}
	}
	return &Service{
		txManager: txManager,
		users:     users,
		ledger:    ledger,
		cache:     cache,
	}
}

// Grant credits a reward. A request whose idempotency key is already recorded
// credits nothing and reports the balance recorded with the original grant.
// Called inside a transaction it joins it.
func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error) {
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: grant amount must not be negative", domain.ErrValidation)
	}
	if !req.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown grant reason %q", domain.ErrValidation, req.Reason)
	}
	defer observe("grant", time.Now())

	var result *domain.GrantResult
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.lockUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			existing, err := s.ledger.FindGrantByIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				result, err = s.replay(ctx, existing, user)
				return err
			}
		}

		grant := &domain.RewardGrant{
			UserID:   req.UserID,
			Reason:   req.Reason,
			Amount:   req.Amount,
			Metadata: req.Metadata,
		}
		if req.IdempotencyKey != "" {
			grant.IdempotencyKey = &req.IdempotencyKey
		}
		created, err := s.ledger.CreateGrant(ctx, grant)
		if err != nil {
			return err
		}
		if !created {
			existing, err := s.ledger.FindGrantByIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("%w: grant %q vanished", domain.ErrConflict, req.IdempotencyKey)
			}
			result, err = s.replay(ctx, existing, user)
			return err
		}

		balance := user.Coins + req.Amount
		if err := s.users.UpdateCoins(ctx, user.ID, balance); err != nil {
			return err
		}
		refType := domain.RefGrant
		if err := s.ledger.CreateTx(ctx, &domain.WalletTx{
			UserID:        user.ID,
			Direction:     domain.Credit,
			Amount:        req.Amount,
			BalanceAfter:  balance,
			Origin:        req.Reason.Origin(),
			ReferenceType: &refType,
			ReferenceID:   &grant.ID,
		}); err != nil {
			return err
		}

		result = &domain.GrantResult{Grant: grant, BalanceAfter: balance}
		pg.AfterCommit(ctx, func(ctx context.Context) {
			s.cache.Invalidate(ctx, user.ID)
			metrics.GrantedCoinsTotal.WithLabelValues(string(req.Reason)).Add(float64(req.Amount))
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) replay(ctx context.Context, grant *domain.RewardGrant, user *domain.User) (*domain.GrantResult, error) {
	tx, err := s.ledger.FindTxByReference(ctx, domain.RefGrant, grant.ID)
	if err != nil {
		return nil, err
	}
	balance := user.Coins
	if tx != nil {
		balance = tx.BalanceAfter
	}
	zap.L().Info("grant replayed", zap.Int64("grantID", grant.ID), zap.Int64("userID", grant.UserID))
	return &domain.GrantResult{Grant: grant, BalanceAfter: balance, Replayed: true}, nil
}

// Debit removes amount from the user's balance and returns the new balance.
func (s *Service) Debit(ctx context.Context, req domain.DebitRequest) (int64, error) {
	if req.Amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", domain.ErrValidation)
	}
	defer observe("debit", time.Now())

	var balance int64
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.lockUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if req.Amount > user.Coins {
			return fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientBalance, user.Coins, req.Amount)
		}

		balance = user.Coins - req.Amount
		if err := s.users.UpdateCoins(ctx, user.ID, balance); err != nil {
			return err
		}
		tx := &domain.WalletTx{
			UserID:       user.ID,
			Direction:    domain.Debit,
			Amount:       req.Amount,
			BalanceAfter: balance,
			Origin:       req.Origin,
		}
		if req.ReferenceType != "" {
			tx.ReferenceType = &req.ReferenceType
			tx.ReferenceID = &req.ReferenceID
		}
		if err := s.ledger.CreateTx(ctx, tx); err != nil {
			return err
		}

		pg.AfterCommit(ctx, func(ctx context.Context) {
			s.cache.Invalidate(ctx, user.ID)
			metrics.DebitedCoinsTotal.WithLabelValues(string(req.Origin)).Add(float64(req.Amount))
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Verify compares the stored balance with the replayed wallet ledger.
func (s *Service) Verify(ctx context.Context, userID int64) (*domain.LedgerDrift, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	sum, err := s.ledger.LedgerBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	drift := &domain.LedgerDrift{UserID: userID, Coins: user.Coins, LedgerAmount: sum}
	if !drift.Balanced() {
		zap.L().Warn("ledger drift detected", zap.Int64("userID", userID),
			zap.Int64("coins", user.Coins), zap.Int64("ledger", sum))
	}
	return drift, nil
}

func (s *Service) lockUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	return user, nil
}

func observe(operation string, start time.Time) {
	metrics.TxDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
