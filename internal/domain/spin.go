package domain

import "time"

type SpinPrefetch struct {
	CanSpin           bool             `json:"canSpin"`
	CooldownRemaining int              `json:"cooldownRemaining,omitempty"`
	Caps              Caps             `json:"caps"`
	Weights           map[string]int64 `json:"weights"`
	Outcomes          []string         `json:"outcomes"`
	SpinsToday        int              `json:"spinsToday"`
	RewardedToday     int              `json:"rewardedToday"`
	CoinsEarnedToday  int64            `json:"coinsEarnedToday"`
}

// SpinStart is the server-decided result of a started spin. Nothing is
// credited until the token is confirmed.
type SpinStart struct {
	Outcome   string    `json:"outcome"`
	Coins     int64     `json:"coins"`
	Token     string    `json:"token"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SpinConfirm struct {
	Outcome      string `json:"outcome"`
	Coins        int64  `json:"coins"`
	BalanceAfter int64  `json:"balanceAfter"`
	Replayed     bool   `json:"replayed"`
}
