package spinservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/internal/wheel"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/metrics"
)

type UserRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.User, error)
}

type SpinRepo interface {
	Create(ctx context.Context, s *domain.SpinSession) (bool, error)
	FindBySignature(ctx context.Context, signature string) (*domain.SpinSession, error)
	Stats(ctx context.Context, userID int64, dayStart time.Time) (*domain.SpinStats, error)
}

type EarningsRepo interface {
	CoinsEarnedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
}

type Economy interface {
	Get(ctx context.Context) (*domain.EconomyConfig, error)
}

type Ledger interface {
	Grant(ctx context.Context, req domain.GrantRequest) (*domain.GrantResult, error)
}

type TokenService interface {
	Issue(intent auth.SpinIntent, ttl time.Duration) (*auth.SpinToken, error)
	Verify(token string) (*auth.SpinClaims, string, error)
}

type Options struct {
	// TokenTTL bounds how long a started spin may wait for confirmation.
	// It is further capped by the configured cooldown between spins.
	TokenTTL time.Duration
	Location *time.Location
	Source   wheel.Source
}

type Service struct {
	txManager pg.TXManager
	users     UserRepo
	spins     SpinRepo
	earnings  EarningsRepo
	economy   Economy
	ledger    Ledger
	tokens    TokenService

	tokenTTL time.Duration
	loc      *time.Location
	source   wheel.Source
	now      func() time.Time
}

func New(txManager pg.TXManager, users UserRepo, spins SpinRepo, earnings EarningsRepo,
	economy Economy, ledger Ledger, tokens TokenService, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Source == nil {
		opts.Source = wheel.CryptoSource()
	}
	return &Service{
		txManager: txManager,
		users:     users,
		spins:     spins,
		earnings:  earnings,
		economy:   economy,
		ledger:    ledger,
		tokens:    tokens,
		tokenTTL:  opts.TokenTTL,
		loc:       opts.Location,
		source:    opts.Source,
		now:       time.Now,
	}
}

type usage struct {
	stats      *domain.SpinStats
	coinsToday int64
}

func (s *Service) usage(ctx context.Context, userID int64, now time.Time) (*usage, error) {
	dayStart := domain.DayStart(now, s.loc)
	stats, err := s.spins.Stats(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	coins, err := s.earnings.CoinsEarnedSince(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	return &usage{stats: stats, coinsToday: coins}, nil
}

func (u *usage) cooldownRemaining(caps domain.Caps, now time.Time) time.Duration {
	if u.stats.LastSpinAt == nil || caps.MinSecondsBetweenSpins <= 0 {
		return 0
	}
	left := time.Duration(caps.MinSecondsBetweenSpins)*time.Second - now.Sub(*u.stats.LastSpinAt)
	return max(left, 0)
}

// check applies the daily caps. pending is the amount about to be credited;
// zero at start, the token's coins at confirm.
func (u *usage) check(caps domain.Caps, method domain.SpinMethod, pending int64, now time.Time) error {
	if u.stats.SpinsToday >= caps.MaxSpinsPerDay {
		return fmt.Errorf("%w: daily spin limit of %d reached", domain.ErrCapExceeded, caps.MaxSpinsPerDay)
	}
	if method == domain.SpinRewarded && u.stats.RewardedToday >= caps.MaxRewardedPerDay {
		return fmt.Errorf("%w: daily rewarded spin limit of %d reached", domain.ErrCapExceeded, caps.MaxRewardedPerDay)
	}
	if left := u.cooldownRemaining(caps, now); left > 0 {
		return fmt.Errorf("%w: %w: next spin in %s", domain.ErrCapExceeded, domain.ErrCooldown, left.Round(time.Second))
	}
	if u.coinsToday >= caps.DailyCoinCap || (pending > 0 && u.coinsToday+pending > caps.DailyCoinCap) {
		return fmt.Errorf("%w: daily coin cap of %d reached", domain.ErrCapExceeded, caps.DailyCoinCap)
	}
	return nil
}

func (s *Service) activeUser(ctx context.Context, userID int64, load func(context.Context, int64) (*domain.User, error)) (*domain.User, error) {
	user, err := load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	if user.Restricted() {
		return nil, fmt.Errorf("%w: account restricted", domain.ErrForbidden)
	}
	return user, nil
}

// Prefetch reports what the wheel looks like and whether the user may spin now.
func (s *Service) Prefetch(ctx context.Context, userID int64) (*domain.SpinPrefetch, error) {
	if _, err := s.activeUser(ctx, userID, s.users.FindByID); err != nil {
		return nil, err
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u, err := s.usage(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	cooldown := u.cooldownRemaining(cfg.Caps, now)

	return &domain.SpinPrefetch{
		CanSpin:           u.check(cfg.Caps, domain.SpinFree, 0, now) == nil,
		CooldownRemaining: int(math.Ceil(cooldown.Seconds())),
		Caps:              cfg.Caps,
		Weights:           cfg.WheelWeights,
		Outcomes:          wheel.Labels(cfg.WheelWeights),
		SpinsToday:        u.stats.SpinsToday,
		RewardedToday:     u.stats.RewardedToday,
		CoinsEarnedToday:  u.coinsToday,
	}, nil
}

// Start decides the outcome and returns it inside a signed token. It writes
// nothing.
func (s *Service) Start(ctx context.Context, userID int64, method domain.SpinMethod, device domain.DeviceInfo) (result *domain.SpinStart, err error) {
	defer func() { metrics.SpinsTotal.WithLabelValues("start", metrics.Result(err)).Inc() }()

	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown spin method %q", domain.ErrValidation, method)
	}
	if _, err := s.activeUser(ctx, userID, s.users.FindByID); err != nil {
		return nil, err
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u, err := s.usage(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if err := u.check(cfg.Caps, method, 0, now); err != nil {
		return nil, err
	}

	outcome, err := wheel.Resolve(cfg.WheelWeights, s.source)
	if err != nil {
		zap.L().Error("can't resolve spin", zap.Int64("configVersion", cfg.Version), zap.Error(err))
		return nil, err
	}
	coins := wheel.Coins(outcome, cfg.Rewards)

	token, err := s.tokens.Issue(auth.SpinIntent{
		UserID:        userID,
		Outcome:       outcome,
		Coins:         coins,
		Method:        string(method),
		ConfigVersion: cfg.Version,
	}, s.ttl(cfg.Caps))
	if err != nil {
		return nil, err
	}
	zap.L().Debug("spin started", zap.Int64("userID", userID), zap.String("outcome", outcome),
		zap.Int64("coins", coins), zap.String("deviceID", device.DeviceID), zap.String("ip", device.IPAddress))

	return &domain.SpinStart{
		Outcome:   outcome,
		Coins:     coins,
		Token:     token.Token,
		Signature: token.Signature,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func (s *Service) ttl(caps domain.Caps) time.Duration {
	ttl := s.tokenTTL
	if cooldown := time.Duration(caps.MinSecondsBetweenSpins) * time.Second; cooldown > 0 && (ttl <= 0 || cooldown < ttl) {
		ttl = cooldown
	}
	return ttl
}

// Confirm books the outcome committed to by token. Confirming the same token
// again returns the recorded result without crediting twice.
func (s *Service) Confirm(ctx context.Context, userID int64, token string, method domain.SpinMethod, device domain.DeviceInfo) (result *domain.SpinConfirm, err error) {
	defer func() { metrics.SpinsTotal.WithLabelValues("confirm", metrics.Result(err)).Inc() }()

	claims, signature, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if claims.UserID != userID || claims.Method != string(method) {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, auth.ErrInvalidSpinToken)
	}
	cfg, err := s.economy.Get(ctx)
	if err != nil {
		return nil, err
	}
	key := "spin:" + signature

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if _, err := s.activeUser(ctx, userID, s.users.GetForUpdate); err != nil {
			return err
		}

		existing, err := s.spins.FindBySignature(ctx, signature)
		if err != nil {
			return err
		}
		if existing != nil {
			granted, err := s.ledger.Grant(ctx, domain.GrantRequest{
				UserID:         userID,
				Reason:         method.GrantReason(),
				Amount:         existing.Coins,
				IdempotencyKey: key,
			})
			if err != nil {
				return err
			}
			result = &domain.SpinConfirm{
				Outcome:      existing.Outcome,
				Coins:        existing.Coins,
				BalanceAfter: granted.BalanceAfter,
				Replayed:     true,
			}
			return nil
		}

		now := s.now()
		u, err := s.usage(ctx, userID, now)
		if err != nil {
			return err
		}
		if err := u.check(cfg.Caps, method, claims.Coins, now); err != nil {
			return err
		}

		session := &domain.SpinSession{
			UserID:    userID,
			Method:    method,
			Outcome:   claims.Outcome,
			Coins:     claims.Coins,
			Signature: signature,
			Device:    device,
		}
		created, err := s.spins.Create(ctx, session)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: spin already confirmed", domain.ErrDuplicate)
		}

		granted, err := s.ledger.Grant(ctx, domain.GrantRequest{
			UserID:         userID,
			Reason:         method.GrantReason(),
			Amount:         claims.Coins,
			IdempotencyKey: key,
			Metadata: map[string]any{
				"outcome":       claims.Outcome,
				"spinSessionId": session.ID,
				"configVersion": claims.ConfigVersion,
			},
		})
		if err != nil {
			return err
		}
		result = &domain.SpinConfirm{
			Outcome:      claims.Outcome,
			Coins:        claims.Coins,
			BalanceAfter: granted.BalanceAfter,
			Replayed:     granted.Replayed,
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCapExceeded) && !errors.Is(err, domain.ErrForbidden) {
			zap.L().Error("spin confirm failed", zap.Int64("userID", userID), zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}
