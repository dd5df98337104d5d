package dto

import (
	"time"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type UserDTO struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Coins         int64      `json:"coins"`
	ReferralCode  string     `json:"referralCode"`
	StreakCurrent int        `json:"streakCurrent"`
	StreakLongest int        `json:"streakLongest"`
	LastClaimDate *time.Time `json:"lastClaimDate,omitempty"`
	Blocked       bool       `json:"blocked"`
	ShadowBanned  bool       `json:"shadowBanned"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type UserPageDTO struct {
	Items []UserDTO `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
	Pages int       `json:"pages"`
}

type AdminGrantRequestDTO struct {
	Amount         int64  `json:"amount" validate:"required,gt=0" example:"100"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required,max=128" example:"ticket-4821"`
	Note           string `json:"note" validate:"max=512"`
}

type GrantResponseDTO struct {
	GrantID      int64 `json:"grantId"`
	Amount       int64 `json:"amount"`
	BalanceAfter int64 `json:"balanceAfter"`
	Replayed     bool  `json:"replayed"`
}

type UpdateConfigRequestDTO struct {
	ExpectedVersion int64                 `json:"expectedVersion" validate:"gte=0"`
	Config          *domain.EconomyConfig `json:"config" validate:"required"`
}

func NewUser(u *domain.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Role:          string(u.Role),
		Coins:         u.Coins,
		ReferralCode:  u.ReferralCode,
		StreakCurrent: u.Streak.Current,
		StreakLongest: u.Streak.Longest,
		LastClaimDate: u.Streak.LastClaimDate,
		Blocked:       u.Blocked,
		ShadowBanned:  u.ShadowBanned,
		CreatedAt:     u.CreatedAt,
	}
}

func NewUserPage(p *domain.Page[domain.User]) UserPageDTO {
	items := make([]UserDTO, len(p.Items))
	for i := range p.Items {
		items[i] = NewUser(&p.Items[i])
	}
	return UserPageDTO{Items: items, Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}

func NewGrantResponse(r *domain.GrantResult) GrantResponseDTO {
	resp := GrantResponseDTO{BalanceAfter: r.BalanceAfter, Replayed: r.Replayed}
	if r.Grant != nil {
		resp.GrantID = r.Grant.ID
		resp.Amount = r.Grant.Amount
	}
	return resp
}
