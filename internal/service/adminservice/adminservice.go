package adminservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

type UserRepo interface {
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
	SetFlags(ctx context.Context, id int64, blocked bool, shadowBanned bool) error
	List(ctx context.Context, search string, page domain.PageRequest) ([]domain.User, int, error)
}

type StatsRepo interface {
	Dashboard(ctx context.Context, dayStart time.Time) (*domain.DashboardStats, error)
}

type Withdrawals interface {
	ListForAdmin(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) (*domain.Page[domain.WithdrawalView], error)
	Approve(ctx context.Context, id int64, adminID int64) (*domain.WithdrawalRequest, error)
	Reject(ctx context.Context, id int64, reason string, adminID int64) (*domain.WithdrawalRequest, error)
}

type Economy interface {
	Get(ctx context.Context) (*domain.EconomyConfig, error)
	Update(ctx context.Context, adminID int64, cfg *domain.EconomyConfig, expectedVersion int64) (*domain.EconomyConfig, error)
}

type Ledger interface {
	Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error)
}

type Service struct {
	txManager   pg.TXManager
	users       UserRepo
	stats       StatsRepo
	withdrawals Withdrawals
	economy     Economy
	ledger      Ledger
	loc         *time.Location
	now         func() time.Time
}

func New(txManager pg.TXManager, users UserRepo, stats StatsRepo, withdrawals Withdrawals, economy Economy, ledger Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		txManager:   txManager,
		users:       users,
		stats:       stats,
		withdrawals: withdrawals,
		economy:     economy,
		ledger:      ledger,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *Service) ListUsers(ctx context.Context, search string, page domain.PageRequest) (*domain.Page[domain.User], error) {
	page = page.Normalize()
	users, total, err := s.users.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	result := domain.NewPage(users, page, total)
	return &result, nil
}

// SetFlag turns a moderation flag on or off and returns the updated user.
func (s *Service) SetFlag(ctx context.Context, adminID, userID int64, flag domain.UserFlag, on bool) (*domain.User, error) {
	var user *domain.User
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
		}
		switch flag {
		case domain.FlagBlocked:
			user.Blocked = on
		case domain.FlagShadowBanned:
			user.ShadowBanned = on
		default:
			return fmt.Errorf("%w: unknown flag %q", domain.ErrValidation, flag)
		}
		return s.users.SetFlags(ctx, userID, user.Blocked, user.ShadowBanned)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("user flag changed",
		zap.Int64("adminID", adminID), zap.Int64("userID", userID),
		zap.String("flag", string(flag)), zap.Bool("on", on))
	return user, nil
}

// Grant credits coins by hand. The caller supplies the idempotency key so a
// retried request cannot pay twice.
func (s *Service) Grant(ctx context.Context, adminID int64, in domain.AdminGrant) (*domain.GrantResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return nil, fmt.Errorf("%w: idempotency key required", domain.ErrValidation)
	}
	result, err := s.ledger.Grant(ctx, domain.GrantRequest{
		UserID:         in.UserID,
		Reason:         domain.ReasonAdmin,
		Amount:         in.Amount,
		IdempotencyKey: "admin:" + in.IdempotencyKey,
		Metadata:       map[string]any{"adminId": adminID, "note": in.Note},
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("admin grant", zap.Int64("adminID", adminID), zap.Int64("userID", in.UserID),
		zap.Int64("amount", in.Amount), zap.Bool("replayed", result.Replayed))
	return result, nil
}

func (s *Service) Withdrawals(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) (*domain.Page[domain.WithdrawalView], error) {
	return s.withdrawals.ListForAdmin(ctx, status, page)
}

func (s *Service) ApproveWithdrawal(ctx context.Context, adminID, id int64) (*domain.WithdrawalRequest, error) {
	return s.withdrawals.Approve(ctx, id, adminID)
}

func (s *Service) RejectWithdrawal(ctx context.Context, adminID, id int64, reason string) (*domain.WithdrawalRequest, error) {
	return s.withdrawals.Reject(ctx, id, reason, adminID)
}

func (s *Service) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.stats.Dashboard(ctx, domain.DayStart(s.now(), s.loc))
	if err != nil {
		zap.L().Error("failed to build dashboard", zap.Error(err))
		return nil, err
	}
	return stats, nil
}

func (s *Service) Config(ctx context.Context) (*domain.EconomyConfig, error) {
	return s.economy.Get(ctx)
}

func (s *Service) UpdateConfig(ctx context.Context, adminID int64, cfg *domain.EconomyConfig, expectedVersion int64) (*domain.EconomyConfig, error) {
	updated, err := s.economy.Update(ctx, adminID, cfg, expectedVersion)
	if err != nil {
		return nil, err
	}
	zap.L().Info("economy config updated", zap.Int64("adminID", adminID), zap.Int64("version", updated.Version))
	return updated, nil
}
