package dto

type RegisterRequestDTO struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"player@example.com"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"s3cretpass"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" validate:"required,email" example:"player@example.com"`
	Password string `json:"password" validate:"required" example:"s3cretpass"`
}

type AuthResponseDTO struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	UserID       int64  `json:"userId"`
	Role         string `json:"role" example:"user"`
	ReferralCode string `json:"referralCode" example:"7992739871"`
}
