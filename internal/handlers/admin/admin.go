package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	ListUsers(ctx context.Context, search string, page domain.PageRequest) (*domain.Page[domain.User], error)
	SetFlag(ctx context.Context, adminID int64, userID int64, flag domain.UserFlag, on bool) (*domain.User, error)
	Grant(ctx context.Context, adminID int64, in domain.AdminGrant) (*domain.GrantResult, error)
	Withdrawals(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) (*domain.Page[domain.WithdrawalView], error)
	ApproveWithdrawal(ctx context.Context, adminID int64, id int64) (*domain.WithdrawalRequest, error)
	RejectWithdrawal(ctx context.Context, adminID int64, id int64, reason string) (*domain.WithdrawalRequest, error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
	Config(ctx context.Context) (*domain.EconomyConfig, error)
	UpdateConfig(ctx context.Context, adminID int64, cfg *domain.EconomyConfig, expectedVersion int64) (*domain.EconomyConfig, error)
}

type AdminHandler struct {
	adminService Service
}

func New(adminService Service) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// ListUsers godoc
//
//	@Summary	List users
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		search	query		string	false	"Email substring"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Page size"
//	@Success	200		{object}	dto.UserPageDTO
//	@Failure	403		{object}	utils.Response	"Admin role required"
//	@Failure	500		{object}	utils.Response	"Internal server error"
//	@Router		/api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.adminService.ListUsers(r.Context(), r.URL.Query().Get("search"), utils.PageFromQuery(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewUserPage(page))
}

// Block godoc
//
//	@Summary	Block a user
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		int	true	"User ID"
//	@Success	200	{object}	dto.UserDTO
//	@Failure	404	{object}	utils.Response	"User not found"
//	@Router		/api/v1/admin/users/{id}/block [post]
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, domain.FlagBlocked, true)
}

// Unblock godoc
//
//	@Summary	Unblock a user
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		int	true	"User ID"
//	@Success	200	{object}	dto.UserDTO
//	@Failure	404	{object}	utils.Response	"User not found"
//	@Router		/api/v1/admin/users/{id}/unblock [post]
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, domain.FlagBlocked, false)
}

// ShadowBan godoc
//
//	@Summary		Shadow-ban a user
//	@Description	The user can still spin but earns nothing.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"User ID"
//	@Success		200	{object}	dto.UserDTO
//	@Failure		404	{object}	utils.Response	"User not found"
//	@Router			/api/v1/admin/users/{id}/shadowban [post]
func (h *AdminHandler) ShadowBan(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, domain.FlagShadowBanned, true)
}

func (h *AdminHandler) setFlag(w http.ResponseWriter, r *http.Request, flag domain.UserFlag, on bool) {
	adminID := r.Context().Value(auth.UserIDKey).(int64)
	userID, err := utils.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	user, err := h.adminService.SetFlag(r.Context(), adminID, userID, flag, on)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewUser(user))
}

// Grant godoc
//
//	@Summary		Manual coin grant
//	@Description	Credits coins to a user. Repeating the idempotency key returns the original grant.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User ID"
//	@Param			request	body		dto.AdminGrantRequestDTO	true	"Grant"
//	@Success		200		{object}	dto.GrantResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid amount"
//	@Failure		404		{object}	utils.Response	"User not found"
//	@Router			/api/v1/admin/users/{id}/grant [post]
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(int64)
	userID, err := utils.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	var req dto.AdminGrantRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	result, err := h.adminService.Grant(r.Context(), adminID, domain.AdminGrant{
		UserID:         userID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Note:           req.Note,
	})
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewGrantResponse(result))
}

// Withdrawals godoc
//
//	@Summary	List withdrawal requests
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		status	query		string	false	"pending, approved or rejected"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Page size"
//	@Success	200		{object}	dto.WithdrawalPageDTO
//	@Failure	400		{object}	utils.Response	"Unknown status"
//	@Router		/api/v1/admin/withdrawals [get]
func (h *AdminHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	status := domain.WithdrawalStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		utils.RespondWithDomainError(w, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status))
		return
	}
	page, err := h.adminService.Withdrawals(r.Context(), status, utils.PageFromQuery(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalViewPage(page))
}

// Approve godoc
//
//	@Summary	Approve a pending withdrawal
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		int	true	"Withdrawal ID"
//	@Success	200	{object}	dto.WithdrawalDTO
//	@Failure	404	{object}	utils.Response	"Withdrawal not found"
//	@Failure	409	{object}	utils.Response	"Already processed"
//	@Router		/api/v1/admin/withdrawals/{id}/approve [post]
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(int64)
	id, err := utils.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	req, err := h.adminService.ApproveWithdrawal(r.Context(), adminID, id)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawal(req))
}

// Reject godoc
//
//	@Summary		Reject a pending withdrawal
//	@Description	The debited amount is refunded to the user.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Withdrawal ID"
//	@Param			request	body		dto.RejectRequestDTO	false	"Reason"
//	@Success		200		{object}	dto.WithdrawalDTO
//	@Failure		404		{object}	utils.Response	"Withdrawal not found"
//	@Failure		409		{object}	utils.Response	"Already processed"
//	@Router			/api/v1/admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(int64)
	id, err := utils.IDParam(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	var req dto.RejectRequestDTO
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondWithDomainError(w, err)
			return
		}
	}
	wr, err := h.adminService.RejectWithdrawal(r.Context(), adminID, id, req.Reason)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawal(wr))
}

// Stats godoc
//
//	@Summary	Dashboard counters
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	domain.DashboardStats
//	@Router		/api/v1/admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

// GetConfig godoc
//
//	@Summary	Current economy config
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	domain.EconomyConfig
//	@Router		/api/v1/admin/config [get]
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.adminService.Config(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cfg)
}

// UpdateConfig godoc
//
//	@Summary		Replace the economy config
//	@Description	Optimistic update: expectedVersion must match the stored version.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.UpdateConfigRequestDTO	true	"New config"
//	@Success		200		{object}	domain.EconomyConfig
//	@Failure		400		{object}	utils.Response	"Config failed validation"
//	@Failure		409		{object}	utils.Response	"Version mismatch"
//	@Router			/api/v1/admin/config [put]
func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	adminID := r.Context().Value(auth.UserIDKey).(int64)
	var req dto.UpdateConfigRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	cfg, err := h.adminService.UpdateConfig(r.Context(), adminID, req.Config, req.ExpectedVersion)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cfg)
}
