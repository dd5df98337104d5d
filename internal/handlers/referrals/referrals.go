package referrals

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	Apply(ctx context.Context, userID int64, code string) (*domain.ReferralResult, error)
	List(ctx context.Context, userID int64) (*domain.ReferralSummary, error)
}

type ReferralHandler struct {
	referralService Service
}

func New(referralService Service) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
	}
}

// Apply godoc
//
//	@Summary		Apply a referral code
//	@Description	Links the caller to the code's owner and pays both referral bonuses. Allowed once per account.
//	@Tags			Referrals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ApplyReferralRequestDTO	true	"Referral code"
//	@Success		200		{object}	domain.ReferralResult
//	@Failure		400		{object}	utils.Response	"Malformed or own code"
//	@Failure		404		{object}	utils.Response	"Unknown code"
//	@Failure		409		{object}	utils.Response	"Referral already applied"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/referrals/apply [post]
func (h *ReferralHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	var req dto.ApplyReferralRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	result, err := h.referralService.Apply(r.Context(), userID, req.Code)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// List godoc
//
//	@Summary		Referral code and invitees
//	@Tags			Referrals
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.ReferralsResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/referrals [get]
func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	summary, err := h.referralService.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	invitees := make([]dto.InviteeDTO, len(summary.Invitees))
	for i, v := range summary.Invitees {
		invitees[i] = dto.InviteeDTO{UserID: v.InviteeID, Email: v.InviteeEmail, JoinedAt: v.CreatedAt}
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ReferralsResponseDTO{
		Code:     summary.Code,
		Count:    summary.Count,
		Invitees: invitees,
	})
}
