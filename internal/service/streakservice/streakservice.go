package streakservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const dateLayout = "2006-01-02"

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
	UpdateStreak(ctx context.Context, id int64, streak domain.Streak) error
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
	economy   Economy
	ledger    Ledger
	loc       *time.Location
	now       func() time.Time
}

func New(txManager pg.TXManager, users UserRepo, economy Economy, ledger Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		txManager: txManager,
		users:     users,
		economy:   economy,
		ledger:    ledger,
		loc:       loc,
		now:       time.Now,
	}
}

// next returns the streak after a claim on today.
func next(streak domain.Streak, today time.Time) domain.Streak {
	current := 1
	if streak.LastClaimDate != nil && streak.LastClaimDate.Equal(today.AddDate(0, 0, -1)) {
		current = streak.Current + 1
	}
	return domain.Streak{
		Current:       current,
		Longest:       max(streak.Longest, current),
		LastClaimDate: &today,
	}
}

// reward looks up the table entry for a streak day, repeating the last entry
// once the table runs out.
func reward(table []int64, current int) int64 {
	if len(table) == 0 || current < 1 {
		return 0
	}
	return table[min(current-1, len(table)-1)]
}

func claimedOn(streak domain.Streak, day time.Time) bool {
	return streak.LastClaimDate != nil && streak.LastClaimDate.Equal(day)
}

func (s *Service) Get(ctx context.Context, userID int64) (*domain.StreakStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get streak", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}

	today := domain.CalendarDate(s.now(), s.loc)
	status := &domain.StreakStatus{
		Current:       user.Streak.Current,
		Longest:       user.Streak.Longest,
		LastClaimDate: user.Streak.LastClaimDate,
		CanClaim:      !claimedOn(user.Streak, today) && !user.Restricted(),
	}
	if status.CanClaim {
		status.NextReward = reward(cfg.Rewards.Streak, next(user.Streak, today).Current)
	}
	return status, nil
}

// Claim advances the daily streak and credits its reward. Both happen in one
// transaction, so a day can be claimed once.
func (s *Service) Claim(ctx context.Context, userID int64) (*domain.StreakClaim, error) {
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	today := domain.CalendarDate(s.now(), s.loc)

	var claim *domain.StreakClaim
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
		}
		if user.Restricted() {
			return fmt.Errorf("%w: account restricted", domain.ErrForbidden)
		}
		if claimedOn(user.Streak, today) {
			return fmt.Errorf("%w: streak already claimed today", domain.ErrAlreadyClaimed)
		}

		streak := next(user.Streak, today)
		if err := s.users.UpdateStreak(ctx, userID, streak); err != nil {
			return err
		}
		amount := reward(cfg.Rewards.Streak, streak.Current)
		granted, err := s.ledger.Grant(ctx, domain.GrantRequest{
			UserID:         userID,
			Reason:         domain.ReasonStreak,
			Amount:         amount,
			IdempotencyKey: fmt.Sprintf("streak:%d:%s", userID, today.Format(dateLayout)),
			Metadata:       map[string]any{"day": streak.Current},
		})
		if err != nil {
			return err
		}
		claim = &domain.StreakClaim{
			Current:      streak.Current,
			Longest:      streak.Longest,
			Reward:       amount,
			BalanceAfter: granted.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}
