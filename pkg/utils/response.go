package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type Response struct {
	Message string `json:"message"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Response{Message: message})
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrCapExceeded, http.StatusTooManyRequests},
	{domain.ErrCooldown, http.StatusTooManyRequests},
	{domain.ErrDuplicate, http.StatusConflict},
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired},
	{domain.ErrConflict, http.StatusServiceUnavailable},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInvalidState, http.StatusConflict},
	{domain.ErrAlreadyClaimed, http.StatusConflict},
}

// StatusFromError maps the domain error taxonomy onto HTTP statuses.
func StatusFromError(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// RespondWithDomainError writes err with its mapped status. Unknown errors
// are logged and hidden behind a generic message.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	status := StatusFromError(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		RespondWithError(w, status, "Internal server error")
		return
	}
	RespondWithError(w, status, err.Error())
}
