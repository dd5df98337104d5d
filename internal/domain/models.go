package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	ReferralCode string    `db:"referral_code"`
	ReferredBy   *int64    `db:"referred_by"`
	Coins        int64     `db:"coins"`
	Streak       Streak    `db:"-"`
	Blocked      bool      `db:"blocked"`
	ShadowBanned bool      `db:"shadow_banned"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Restricted users may not spin or earn rewards.
func (u *User) Restricted() bool {
	return u.Blocked || u.ShadowBanned
}

type Streak struct {
	Current       int        `db:"streak_current"`
	Longest       int        `db:"streak_longest"`
	LastClaimDate *time.Time `db:"streak_last_claim"`
}

type GrantReason string

const (
	ReasonSpin       GrantReason = "spin"
	ReasonStreak     GrantReason = "streak"
	ReasonReferral   GrantReason = "referral"
	ReasonBooster    GrantReason = "booster"
	ReasonAdmin      GrantReason = "admin"
	ReasonRewardedAd GrantReason = "rewarded-ad"
)

func (r GrantReason) Valid() bool {
	switch r {
	case ReasonSpin, ReasonStreak, ReasonReferral, ReasonBooster, ReasonAdmin, ReasonRewardedAd:
		return true
	}
	return false
}

type RewardGrant struct {
	ID             int64          `db:"id"`
	UserID         int64          `db:"user_id"`
	Reason         GrantReason    `db:"reason"`
	Amount         int64          `db:"amount"`
	IdempotencyKey *string        `db:"idempotency_key"`
	Metadata       map[string]any `db:"metadata"`
	CreatedAt      time.Time      `db:"created_at"`
}

type TxDirection string

const (
	Credit TxDirection = "credit"
	Debit  TxDirection = "debit"
)

type TxOrigin string

const (
	OriginSpin       TxOrigin = "spin"
	OriginRewardedAd TxOrigin = "rewarded-ad"
	OriginStreak     TxOrigin = "streak"
	OriginReferral   TxOrigin = "referral"
	OriginBooster    TxOrigin = "booster"
	OriginAdmin      TxOrigin = "admin"
	OriginWithdrawal TxOrigin = "withdrawal"
)

const (
	RefGrant      = "grant"
	RefWithdrawal = "withdrawal"
)

type WalletTx struct {
	ID            int64       `db:"id"`
	UserID        int64       `db:"user_id"`
	Direction     TxDirection `db:"direction"`
	Amount        int64       `db:"amount"`
	BalanceAfter  int64       `db:"balance_after"`
	Origin        TxOrigin    `db:"origin"`
	ReferenceType *string     `db:"reference_type"`
	ReferenceID   *int64      `db:"reference_id"`
	CreatedAt     time.Time   `db:"created_at"`
}

type SpinMethod string

const (
	SpinFree     SpinMethod = "free"
	SpinRewarded SpinMethod = "rewarded"
)

func (m SpinMethod) Valid() bool {
	return m == SpinFree || m == SpinRewarded
}

// GrantReason maps a spin method to the reason its reward is booked under.
func (m SpinMethod) GrantReason() GrantReason {
	if m == SpinRewarded {
		return ReasonRewardedAd
	}
	return ReasonSpin
}

type DeviceInfo struct {
	DeviceID  string
	IPAddress string
	UserAgent string
}

type SpinSession struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Method    SpinMethod `db:"method"`
	Outcome   string     `db:"outcome"`
	Coins     int64      `db:"coins"`
	Signature string     `db:"signature"`
	Device    DeviceInfo `db:"-"`
	CreatedAt time.Time  `db:"created_at"`
}

// SpinStats is the per-user activity used by cap checks.
type SpinStats struct {
	SpinsToday    int
	RewardedToday int
	LastSpinAt    *time.Time
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	return s == WithdrawalPending || s == WithdrawalApproved || s == WithdrawalRejected
}

type WithdrawalRequest struct {
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"`
	Amount      int64            `db:"amount"`
	Fee         int64            `db:"fee"`
	NetAmount   int64            `db:"net_amount"`
	Method      string           `db:"method"`
	AccountInfo string           `db:"account_info"`
	Status      WithdrawalStatus `db:"status"`
	Notes       string           `db:"notes"`
	ProcessedBy *int64           `db:"processed_by"`
	ProcessedAt *time.Time       `db:"processed_at"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
}

// WithdrawalView is the admin listing projection of a request.
type WithdrawalView struct {
	WithdrawalRequest
	UserEmail      string  `db:"user_email"`
	ProcessorEmail *string `db:"processor_email"`
}

type Referral struct {
	ID        int64     `db:"id"`
	InviterID int64     `db:"inviter_id"`
	InviteeID int64     `db:"invitee_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type ReferralView struct {
	InviteeID    int64     `db:"invitee_id"`
	InviteeEmail string    `db:"invitee_email"`
	CreatedAt    time.Time `db:"created_at"`
}

type LedgerDrift struct {
	UserID       int64 `db:"user_id"`
	Coins        int64 `db:"coins"`
	LedgerAmount int64 `db:"ledger_amount"`
}

type DashboardStats struct {
	TotalUsers         int64 `json:"totalUsers"`
	ActiveUsersToday   int64 `json:"activeUsersToday"`
	SpinsToday         int64 `json:"spinsToday"`
	CoinsGrantedToday  int64 `json:"coinsGrantedToday"`
	CoinsInCirculation int64 `json:"coinsInCirculation"`
	PendingWithdrawals int64 `json:"pendingWithdrawals"`
	PendingAmount      int64 `json:"pendingAmount"`
}

func (d LedgerDrift) Balanced() bool {
	return d.Coins == d.LedgerAmount
}

type Wallet struct {
	UserID      int64     `json:"userId"`
	Coins       int64     `json:"coins"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type StreakStatus struct {
	Current       int        `json:"current"`
	Longest       int        `json:"longest"`
	LastClaimDate *time.Time `json:"lastClaimDate,omitempty"`
	CanClaim      bool       `json:"canClaim"`
	NextReward    int64      `json:"nextReward"`
}

type StreakClaim struct {
	Current      int   `json:"current"`
	Longest      int   `json:"longest"`
	Reward       int64 `json:"reward"`
	BalanceAfter int64 `json:"balanceAfter"`
}

type WithdrawalInput struct {
	Amount      int64
	Method      string
	AccountInfo string
	Notes       string
}

type ReferralResult struct {
	InviterID    int64 `json:"inviterId"`
	Bonus        int64 `json:"bonus"`
	BalanceAfter int64 `json:"balanceAfter"`
}

type ReferralSummary struct {
	Code     string         `json:"code"`
	Count    int            `json:"count"`
	Invitees []ReferralView `json:"invitees"`
}

// SSVCallback is a rewarded-ad server-side verification callback.
type SSVCallback struct {
	UserID       int64
	AdUnitID     string
	RewardAmount int64
	RewardType   string
	Timestamp    string
	Signature    string
}

// Payload is the canonical string the callback signature covers.
func (c SSVCallback) Payload() string {
	return fmt.Sprintf("ad_unit_id=%s&reward_amount=%d&reward_type=%s&timestamp=%s&user_id=%d",
		c.AdUnitID, c.RewardAmount, c.RewardType, c.Timestamp, c.UserID)
}

type UserFlag string

const (
	FlagBlocked      UserFlag = "blocked"
	FlagShadowBanned UserFlag = "shadow_banned"
)

type AdminGrant struct {
	UserID         int64
	Amount         int64
	IdempotencyKey string
	Note           string
}
