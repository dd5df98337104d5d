package referralservice

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/pkg/validate"
)

const statusCompleted = "completed"

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.User, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
	SetReferredBy(ctx context.Context, id int64, referrerID int64) error
}

type ReferralRepo interface {
	Create(ctx context.Context, ref *domain.Referral) error
	ListByInviter(ctx context.Context, inviterID int64) ([]domain.ReferralView, error)
}

type Economy interface {
	Get(ctx context.Context) (*domain.EconomyConfig, error)
}

type Ledger interface {
	Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error)
}

type Service struct {
	txManager pg.TXManager
	users     UserRepo
	referrals ReferralRepo
	economy   Economy
	ledger    Ledger
}

func New(txManager pg.TXManager, users UserRepo, referrals ReferralRepo, economy Economy, ledger Ledger) *Service {
	return &Service{
		txManager: txManager,
		users:     users,
		referrals: referrals,
		economy:   economy,
		ledger:    ledger,
	}
}

// Apply links the user to the owner of code and pays both sides their bonus.
// A user can be referred once.
func (s *Service) Apply(ctx context.Context, userID int64, code string) (*domain.ReferralResult, error) {
	if !validate.IsReferralCode(code) {
		return nil, fmt.Errorf("%w: malformed referral code", domain.ErrValidation)
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	bonus := cfg.Rewards.Referral

	var result *domain.ReferralResult
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		invitee, err := s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if invitee == nil {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
		}
		if invitee.Restricted() {
			return fmt.Errorf("%w: account restricted", domain.ErrForbidden)
		}
		if invitee.ReferredBy != nil {
			return fmt.Errorf("%w: referral already applied", domain.ErrDuplicate)
		}

		inviter, err := s.users.FindByReferralCode(ctx, code)
		if err != nil {
			return err
		}
		if inviter == nil {
			return fmt.Errorf("%w: referral code", domain.ErrNotFound)
		}
		if inviter.ID == userID {
			return fmt.Errorf("%w: own referral code", domain.ErrValidation)
		}

		if err := s.users.SetReferredBy(ctx, userID, inviter.ID); err != nil {
			return err
		}
		if err := s.referrals.Create(ctx, &domain.Referral{InviterID: inviter.ID, InviteeID: userID, Status: statusCompleted}); err != nil {
			return err
		}

		if !inviter.Restricted() {
			if _, err := s.ledger.Grant(ctx, domain.GrantRequest{
				UserID:         inviter.ID,
				Reason:         domain.ReasonReferral,
				Amount:         bonus.Inviter,
				IdempotencyKey: fmt.Sprintf("referral:inviter:%d", userID),
				Metadata:       map[string]any{"inviteeId": userID},
			}); err != nil {
				return err
			}
		}
		granted, err := s.ledger.Grant(ctx, domain.GrantRequest{
			UserID:         userID,
			Reason:         domain.ReasonReferral,
			Amount:         bonus.Invitee,
			IdempotencyKey: fmt.Sprintf("referral:invitee:%d", userID),
			Metadata:       map[string]any{"inviterId": inviter.ID},
		})
		if err != nil {
			return err
		}
		result = &domain.ReferralResult{InviterID: inviter.ID, Bonus: bonus.Invitee, BalanceAfter: granted.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("referral applied", zap.Int64("userID", userID), zap.Int64("inviterID", result.InviterID))
	return result, nil
}

func (s *Service) List(ctx context.Context, userID int64) (*domain.ReferralSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	invitees, err := s.referrals.ListByInviter(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch referrals", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	if invitees == nil {
		invitees = []domain.ReferralView{}
	}
	return &domain.ReferralSummary{Code: user.ReferralCode, Count: len(invitees), Invitees: invitees}, nil
}
