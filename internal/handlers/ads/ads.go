package ads

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	Verify(ctx context.Context, cb domain.SSVCallback) (*domain.GrantResult, error)
}

type AdsHandler struct {
	adsService Service
}

func New(adsService Service) *AdsHandler {
	return &AdsHandler{
		adsService: adsService,
	}
}

// SSV godoc
//
//	@Summary		Rewarded ad server-side verification
//	@Description	Webhook called by the ad network after a rewarded view. The signature is an HMAC-SHA256 of the callback fields. Replays are acknowledged without crediting twice.
//	@Tags			Ads
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SSVCallbackDTO	true	"Callback payload"
//	@Success		200		{object}	dto.SSVResponseDTO
//	@Failure		400		{object}	utils.Response	"Bad signature or ad unit"
//	@Failure		403		{object}	utils.Response	"Account restricted"
//	@Failure		429		{object}	utils.Response	"Daily rewarded cap reached"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/ads/ssv [post]
func (h *AdsHandler) SSV(w http.ResponseWriter, r *http.Request) {
	var req dto.SSVCallbackDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	result, err := h.adsService.Verify(r.Context(), domain.SSVCallback{
		UserID:       req.UserID,
		AdUnitID:     req.AdUnitID,
		RewardAmount: req.RewardAmount,
		RewardType:   req.RewardType,
		Timestamp:    req.Timestamp,
		Signature:    req.Signature,
	})
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	resp := dto.SSVResponseDTO{Message: "Reward granted", BalanceAfter: result.BalanceAfter}
	if result.Grant != nil {
		resp.Coins = result.Grant.Amount
	}
	if result.Replayed {
		resp.Message = "Already processed"
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
