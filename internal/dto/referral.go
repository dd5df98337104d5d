package dto

import "time"

type ApplyReferralRequestDTO struct {
	Code string `json:"code" validate:"required,len=10,numeric" example:"7992739871"`
}

type InviteeDTO struct {
	UserID   int64     `json:"userId"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ReferralsResponseDTO struct {
	Code     string       `json:"code"`
	Count    int          `json:"count"`
	Invitees []InviteeDTO `json:"invitees"`
}
