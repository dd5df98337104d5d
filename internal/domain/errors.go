package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("forbidden")
	ErrCapExceeded         = errors.New("cap exceeded")
	ErrCooldown            = errors.New("cooldown active")
	ErrDuplicate           = errors.New("duplicate")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrAlreadyClaimed      = errors.New("already claimed today")
	ErrConfig              = errors.New("invalid economy config")
)
