package dto

type SSVCallbackDTO struct {
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
	AdUnitID     string `json:"ad_unit_id" validate:"required"`
	RewardAmount int64  `json:"reward_amount"`
	RewardType   string `json:"reward_type"`
	Timestamp    string `json:"timestamp" validate:"required"`
	Signature    string `json:"signature" validate:"required,hexadecimal"`
}

type SSVResponseDTO struct {
	Message      string `json:"message" example:"Reward granted"`
	Coins        int64  `json:"coins"`
	BalanceAfter int64  `json:"balanceAfter"`
}
