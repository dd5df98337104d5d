package dto

type DeviceDTO struct {
	DeviceID string `json:"deviceId" validate:"max=128"`
}

type SpinStartRequestDTO struct {
	Method string    `json:"method" validate:"required,oneof=free rewarded" example:"free"`
	Device DeviceDTO `json:"device"`
}

type SpinConfirmRequestDTO struct {
	Token  string    `json:"token" validate:"required"`
	Method string    `json:"method" validate:"required,oneof=free rewarded" example:"free"`
	Device DeviceDTO `json:"device"`
}
