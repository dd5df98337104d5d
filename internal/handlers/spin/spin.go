package spin

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	Prefetch(ctx context.Context, userID int64) (*domain.SpinPrefetch, error)
	Start(ctx context.Context, userID int64, method domain.SpinMethod, device domain.DeviceInfo) (*domain.SpinStart, error)
	Confirm(ctx context.Context, userID int64, token string, method domain.SpinMethod, device domain.DeviceInfo) (*domain.SpinConfirm, error)
}

type SpinHandler struct {
	spinService Service
}

func New(spinService Service) *SpinHandler {
	return &SpinHandler{
		spinService: spinService,
	}
}

func device(r *http.Request, d dto.DeviceDTO) domain.DeviceInfo {
	return domain.DeviceInfo{
		DeviceID:  d.DeviceID,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// Prefetch godoc
//
//	@Summary		Spin availability
//	@Description	Current caps, wheel weights and today's usage for the caller.
//	@Tags			Spin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.SpinPrefetch
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		403	{object}	utils.Response	"Account restricted"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/spin/prefetch [get]
func (h *SpinHandler) Prefetch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	prefetch, err := h.spinService.Prefetch(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, prefetch)
}

// Start godoc
//
//	@Summary		Start a spin
//	@Description	Resolve the outcome on the server and return a signed spin token. Nothing is credited until confirm.
//	@Tags			Spin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SpinStartRequestDTO	true	"Spin method"
//	@Success		200		{object}	domain.SpinStart
//	@Failure		400		{object}	utils.Response	"Invalid request"
//	@Failure		403		{object}	utils.Response	"Account restricted"
//	@Failure		429		{object}	utils.Response	"Cap exceeded or cooldown"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/spin/start [post]
func (h *SpinHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	var req dto.SpinStartRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	start, err := h.spinService.Start(r.Context(), userID, domain.SpinMethod(req.Method), device(r, req.Device))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, start)
}

// Confirm godoc
//
//	@Summary		Confirm a spin
//	@Description	Credit the outcome carried by the spin token. Confirming the same token again returns the same balance.
//	@Tags			Spin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SpinConfirmRequestDTO	true	"Spin token"
//	@Success		200		{object}	domain.SpinConfirm
//	@Failure		400		{object}	utils.Response	"Invalid or expired token"
//	@Failure		403		{object}	utils.Response	"Account restricted"
//	@Failure		429		{object}	utils.Response	"Cap exceeded"
//	@Failure		503		{object}	utils.Response	"Concurrent update, retry"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/spin/confirm [post]
func (h *SpinHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	var req dto.SpinConfirmRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	confirm, err := h.spinService.Confirm(r.Context(), userID, req.Token, domain.SpinMethod(req.Method), device(r, req.Device))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, confirm)
}
