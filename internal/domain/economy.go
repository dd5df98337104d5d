package domain

import (
	"fmt"
	"time"
)

type EconomyConfig struct {
	Version      int64            `json:"version"`
	WheelWeights map[string]int64 `json:"wheelWeights"`
	Caps         Caps             `json:"caps"`
	Rewards      Rewards          `json:"rewards"`
	Withdrawals  WithdrawalRules  `json:"withdrawals"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type Caps struct {
	MaxSpinsPerDay         int   `json:"maxSpinsPerDay"`
	MinSecondsBetweenSpins int   `json:"minSecondsBetweenSpins"`
	MaxRewardedPerDay      int   `json:"maxRewardedPerDay"`
	DailyCoinCap           int64 `json:"dailyCoinCap"`
}

type SpinReward struct {
	Base int64 `json:"base"`
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
}

type ReferralReward struct {
	Inviter int64 `json:"inviter"`
	Invitee int64 `json:"invitee"`
}

type Rewards struct {
	Spin       SpinReward     `json:"spin"`
	Jackpot    int64          `json:"jackpot"`
	Streak     []int64        `json:"streak"`
	Referral   ReferralReward `json:"referral"`
	RewardedAd int64          `json:"rewardedAd"`
}

type WithdrawalRules struct {
	Min              int64    `json:"min"`
	Fee              float64  `json:"fee"`
	CooldownHours    int      `json:"cooldownHours"`
	AutoApproveLimit int64    `json:"autoApproveLimit"`
	Methods          []string `json:"methods"`
}

func DefaultEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		WheelWeights: map[string]int64{
			"2":         30,
			"5":         25,
			"10":        20,
			"20":        15,
			"50":        7,
			"jackpot":   1,
			"bonusSpin": 1,
			"tryAgain":  1,
		},
		Caps: Caps{
			MaxSpinsPerDay:         50,
			MinSecondsBetweenSpins: 30,
			MaxRewardedPerDay:      20,
			DailyCoinCap:           500,
		},
		Rewards: Rewards{
			Spin:       SpinReward{Base: 1, Min: 1, Max: 100},
			Jackpot:    100,
			Streak:     []int64{5, 10, 15, 20, 25, 30, 50},
			Referral:   ReferralReward{Inviter: 50, Invitee: 25},
			RewardedAd: 5,
		},
		Withdrawals: WithdrawalRules{
			Min:           1000,
			Fee:           0.05,
			CooldownHours: 24,
			Methods:       []string{"paypal", "bank", "crypto", "gift_card"},
		},
	}
}

func (c *EconomyConfig) Validate() error {
	if len(c.WheelWeights) == 0 {
		return fmt.Errorf("%w: wheel has no outcomes", ErrConfig)
	}
	var total int64
	for label, w := range c.WheelWeights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %q", ErrConfig, label)
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("%w: total wheel weight is zero", ErrConfig)
	}
	if c.Caps.MaxSpinsPerDay < 0 || c.Caps.MinSecondsBetweenSpins < 0 ||
		c.Caps.MaxRewardedPerDay < 0 || c.Caps.DailyCoinCap < 0 {
		return fmt.Errorf("%w: caps must not be negative", ErrConfig)
	}
	if c.Rewards.Spin.Base < 0 || c.Rewards.Jackpot < 0 || c.Rewards.RewardedAd < 0 ||
		c.Rewards.Referral.Inviter < 0 || c.Rewards.Referral.Invitee < 0 {
		return fmt.Errorf("%w: rewards must not be negative", ErrConfig)
	}
	if c.Rewards.Spin.Max > 0 && c.Rewards.Spin.Min > c.Rewards.Spin.Max {
		return fmt.Errorf("%w: spin min exceeds max", ErrConfig)
	}
	if len(c.Rewards.Streak) == 0 {
		return fmt.Errorf("%w: streak table is empty", ErrConfig)
	}
	for _, r := range c.Rewards.Streak {
		if r < 0 {
			return fmt.Errorf("%w: streak reward must not be negative", ErrConfig)
		}
	}
	if c.Withdrawals.Min <= 0 {
		return fmt.Errorf("%w: withdrawal minimum must be positive", ErrConfig)
	}
	if c.Withdrawals.Fee < 0 || c.Withdrawals.Fee >= 1 {
		return fmt.Errorf("%w: withdrawal fee must be in [0, 1)", ErrConfig)
	}
	if c.Withdrawals.CooldownHours < 0 || c.Withdrawals.AutoApproveLimit < 0 {
		return fmt.Errorf("%w: withdrawal limits must not be negative", ErrConfig)
	}
	if len(c.Withdrawals.Methods) == 0 {
		return fmt.Errorf("%w: no withdrawal methods", ErrConfig)
	}
	return nil
}

func (c *EconomyConfig) AllowsMethod(method string) bool {
	for _, m := range c.Withdrawals.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayStart(a, loc).Equal(DayStart(b, loc))
}

// CalendarDate returns t's calendar day in loc as a UTC-midnight value,
// the form DATE columns round-trip through.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
