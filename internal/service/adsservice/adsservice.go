package adsservice

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

type UserRepo interface {
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
}

type GrantRepo interface {
	FindGrantByIdempotencyKey(ctx context.Context, key string) (*domain.RewardGrant, error)
	CountGrantsSince(ctx context.Context, userID int64, reason domain.GrantReason, since time.Time) (int, error)
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
	grants    GrantRepo
	economy   Economy
	ledger    Ledger
	secret    []byte
	adUnits   []string
	loc       *time.Location
	now       func() time.Time
}

func New(txManager pg.TXManager, users UserRepo, grants GrantRepo, economy Economy, ledger Ledger, secret string, adUnits []string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		txManager: txManager,
		users:     users,
		grants:    grants,
		economy:   economy,
		ledger:    ledger,
		secret:    []byte(secret),
		adUnits:   adUnits,
		loc:       loc,
		now:       time.Now,
	}
}

// Sign returns the hex HMAC-SHA256 of the callback payload.
func Sign(secret []byte, cb domain.SSVCallback) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(cb.Payload()))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) authentic(cb domain.SSVCallback) bool {
	got, err := hex.DecodeString(cb.Signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(s.secret, cb))
	return hmac.Equal(got, want)
}

// Verify credits a rewarded-ad view reported by the ad network. A callback
// delivered twice is acknowledged without crediting again.
func (s *Service) Verify(ctx context.Context, cb domain.SSVCallback) (*domain.GrantResult, error) {
	if !s.authentic(cb) {
		return nil, fmt.Errorf("%w: bad ssv signature", domain.ErrValidation)
	}
	if !slices.Contains(s.adUnits, cb.AdUnitID) {
		return nil, fmt.Errorf("%w: unknown ad unit %q", domain.ErrValidation, cb.AdUnitID)
	}
	if cb.UserID <= 0 || cb.Timestamp == "" {
		return nil, fmt.Errorf("%w: incomplete callback", domain.ErrValidation)
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("ssv:%d:%s:%s", cb.UserID, cb.AdUnitID, cb.Timestamp)
	req := domain.GrantRequest{
		UserID:         cb.UserID,
		Reason:         domain.ReasonRewardedAd,
		Amount:         cfg.Rewards.RewardedAd,
		IdempotencyKey: key,
		Metadata:       map[string]any{"adUnitId": cb.AdUnitID, "rewardType": cb.RewardType},
	}

	var result *domain.GrantResult
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		user, err := s.users.GetForUpdate(ctx, cb.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %d", domain.ErrNotFound, cb.UserID)
		}

		existing, err := s.grants.FindGrantByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		if existing == nil {
			if user.Restricted() {
				return fmt.Errorf("%w: account restricted", domain.ErrForbidden)
			}
			since := domain.DayStart(s.now(), s.loc)
			count, err := s.grants.CountGrantsSince(ctx, cb.UserID, domain.ReasonRewardedAd, since)
			if err != nil {
				return err
			}
			if count >= cfg.Caps.MaxRewardedPerDay {
				return fmt.Errorf("%w: rewarded ads per day", domain.ErrCapExceeded)
			}
		}

		result, err = s.ledger.Grant(ctx, req)
		return err
	})
	if err != nil {
		zap.L().Warn("ssv callback rejected", zap.Int64("userID", cb.UserID), zap.String("adUnit", cb.AdUnitID), zap.Error(err))
		return nil, err
	}
	return result, nil
}
