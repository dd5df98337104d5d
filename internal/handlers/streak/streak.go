package streak

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	Get(ctx context.Context, userID int64) (*domain.StreakStatus, error)
	Claim(ctx context.Context, userID int64) (*domain.StreakClaim, error)
}

type StreakHandler struct {
	streakService Service
}

func New(streakService Service) *StreakHandler {
	return &StreakHandler{
		streakService: streakService,
	}
}

// Get godoc
//
//	@Summary		Daily streak status
//	@Tags			Streak
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.StreakStatus
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/streak [get]
func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	status, err := h.streakService.Get(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, status)
}

// Claim godoc
//
//	@Summary		Claim today's streak reward
//	@Description	Once per calendar day. Missing a day resets the streak to day one.
//	@Tags			Streak
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.StreakClaim
//	@Failure		403	{object}	utils.Response	"Account restricted"
//	@Failure		409	{object}	utils.Response	"Already claimed today"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/streak/claim [post]
func (h *StreakHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	claim, err := h.streakService.Claim(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, claim)
}
