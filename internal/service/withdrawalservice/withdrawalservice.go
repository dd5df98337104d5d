package withdrawalservice

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
)

type UserRepo interface {
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
}

type WithdrawalRepo interface {
	Create(ctx context.Context, w *domain.WithdrawalRequest) error
	GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error)
	UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus, notes string, processedBy int64) (*domain.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WithdrawalRequest, int, error)
	ListForAdmin(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) ([]domain.WithdrawalView, int, error)
	FindPendingForAutoApproval(ctx context.Context, maxAmount int64, limit int) ([]domain.WithdrawalRequest, error)
}

type Economy interface {
	Get(ctx context.Context) (*domain.EconomyConfig, error)
}

type Ledger interface {
	Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error)
	Debit(ctx context.Context, req domain.DebitRequest) (int64, error)
}

type Service struct {
	txManager   pg.TXManager
	users       UserRepo
	withdrawals WithdrawalRepo
	economy     Economy
	ledger      Ledger
	now         func() time.Time
}

func New(txManager pg.TXManager, users UserRepo, withdrawals WithdrawalRepo, economy Economy, ledger Ledger) *Service {
	return &Service{
		txManager:   txManager,
		users:       users,
		withdrawals: withdrawals,
		economy:     economy,
		ledger:      ledger,
		now:         time.Now,
	}
}

// Fee is amount × rate rounded half away from zero.
func Fee(amount int64, rate float64) int64 {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}

// Create opens a pending request and debits the full amount; the fee stays
// with the house.
func (s *Service) Create(ctx context.Context, userID int64, in domain.WithdrawalInput) (*domain.WithdrawalRequest, error) {
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	rules := cfg.Withdrawals
	if in.Amount <= 0 || in.Amount < rules.Min {
		return nil, fmt.Errorf("%w: minimum withdrawal is %d coins", domain.ErrValidation, rules.Min)
	}
	if !cfg.AllowsMethod(in.Method) {
		return nil, fmt.Errorf("%w: unsupported withdrawal method %q", domain.ErrValidation, in.Method)
	}

	var request *domain.WithdrawalRequest
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
		}
		if user.Blocked {
			return fmt.Errorf("%w: account blocked", domain.ErrForbidden)
		}
		if in.Amount > user.Coins {
			return fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientBalance, user.Coins, in.Amount)
		}

		last, err := s.withdrawals.LastCreatedAt(ctx, userID)
		if err != nil {
			return err
		}
		cooldown := time.Duration(rules.CooldownHours) * time.Hour
		if last != nil && s.now().Sub(*last) < cooldown {
			return fmt.Errorf("%w: one withdrawal per %d hours", domain.ErrCooldown, rules.CooldownHours)
		}

		fee := Fee(in.Amount, rules.Fee)
		request = &domain.WithdrawalRequest{
			UserID:      userID,
			Amount:      in.Amount,
			Fee:         fee,
			NetAmount:   in.Amount - fee,
			Method:      in.Method,
			AccountInfo: in.AccountInfo,
			Notes:       in.Notes,
			Status:      domain.WithdrawalPending,
		}
		if err := s.withdrawals.Create(ctx, request); err != nil {
			return err
		}
		if _, err := s.ledger.Debit(ctx, domain.DebitRequest{
			UserID:        userID,
			Amount:        in.Amount,
			Origin:        domain.OriginWithdrawal,
			ReferenceType: domain.RefWithdrawal,
			ReferenceID:   request.ID,
		}); err != nil {
			return err
		}
		pg.AfterCommit(ctx, func(context.Context) {
			metrics.WithdrawalsTotal.WithLabelValues(string(domain.WithdrawalPending)).Inc()
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("withdrawal requested", zap.Int64("id", request.ID), zap.Int64("userID", userID), zap.Int64("amount", in.Amount))
	return request, nil
}

func (s *Service) lock(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	w, err := s.withdrawals.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: withdrawal %d", domain.ErrNotFound, id)
	}
	return w, nil
}

// Approve confirms a pending request. The balance was debited at creation.
// adminID 0 records an automatic approval.
func (s *Service) Approve(ctx context.Context, id int64, adminID int64) (*domain.WithdrawalRequest, error) {
	var approved *domain.WithdrawalRequest
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		w, err := s.lock(ctx, id)
		if err != nil {
			return err
		}
		if w.Status != domain.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %d is %s", domain.ErrInvalidState, id, w.Status)
		}
		approved, err = s.withdrawals.UpdateStatus(ctx, id, domain.WithdrawalApproved, w.Notes, adminID)
		if err != nil {
			return err
		}
		pg.AfterCommit(ctx, func(context.Context) {
			metrics.WithdrawalsTotal.WithLabelValues(string(domain.WithdrawalApproved)).Inc()
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("withdrawal approved", zap.Int64("id", id), zap.Int64("adminID", adminID))
	return approved, nil
}

// Reject refunds a pending request once. Rejecting an already rejected
// request changes nothing.
func (s *Service) Reject(ctx context.Context, id int64, reason string, adminID int64) (*domain.WithdrawalRequest, error) {
	var rejected *domain.WithdrawalRequest
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		w, err := s.lock(ctx, id)
		if err != nil {
			return err
		}
		switch w.Status {
		case domain.WithdrawalRejected:
			rejected = w
			return nil
		case domain.WithdrawalApproved:
			return fmt.Errorf("%w: withdrawal %d is already approved", domain.ErrInvalidState, id)
		}

		notes := reason
		if notes == "" {
			notes = w.Notes
		}
		rejected, err = s.withdrawals.UpdateStatus(ctx, id, domain.WithdrawalRejected, notes, adminID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Grant(ctx, domain.GrantRequest{
			UserID:         w.UserID,
			Reason:         domain.ReasonAdmin,
			Amount:         w.Amount,
			IdempotencyKey: fmt.Sprintf("withdrawal:%d", id),
			Metadata:       map[string]any{"withdrawalId": id, "reason": reason},
		}); err != nil {
			return err
		}
		pg.AfterCommit(ctx, func(context.Context) {
			metrics.WithdrawalsTotal.WithLabelValues(string(domain.WithdrawalRejected)).Inc()
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("withdrawal rejected", zap.Int64("id", id), zap.Int64("adminID", adminID))
	return rejected, nil
}

func (s *Service) List(ctx context.Context, userID int64, page domain.PageRequest) (*domain.Page[domain.WithdrawalRequest], error) {
	page = page.Normalize()
	items, total, err := s.withdrawals.ListByUser(ctx, userID, page)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	result := domain.NewPage(items, page, total)
	return &result, nil
}

func (s *Service) ListForAdmin(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) (*domain.Page[domain.WithdrawalView], error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	page = page.Normalize()
	items, total, err := s.withdrawals.ListForAdmin(ctx, status, page)
	if err != nil {
		return nil, err
	}
	result := domain.NewPage(items, page, total)
	return &result, nil
}

// PendingForAutoApproval lists up to limit pending requests small enough to
// approve without review. It returns nothing while auto-approval is off.
func (s *Service) PendingForAutoApproval(ctx context.Context, limit int) ([]domain.WithdrawalRequest, error) {
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Withdrawals.AutoApproveLimit <= 0 {
		return nil, nil
	}
	return s.withdrawals.FindPendingForAutoApproval(ctx, cfg.Withdrawals.AutoApproveLimit, limit)
}
