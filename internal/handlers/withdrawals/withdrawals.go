package withdrawals

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

type Service interface {
	Create(ctx context.Context, userID int64, in domain.WithdrawalInput) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, userID int64, page domain.PageRequest) (*domain.Page[domain.WithdrawalRequest], error)
}

type WithdrawalHandler struct {
	withdrawalService Service
}

func New(withdrawalService Service) *WithdrawalHandler {
	return &WithdrawalHandler{
		withdrawalService: withdrawalService,
	}
}

// Create godoc
//
//	@Summary		Request a withdrawal
//	@Description	Debit the amount now and queue the request for review. The fee is deducted from the payout.
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawalRequestDTO	true	"Withdrawal request"
//	@Success		201		{object}	dto.WithdrawalDTO
//	@Failure		400		{object}	utils.Response	"Below minimum or unknown method"
//	@Failure		402		{object}	utils.Response	"Insufficient balance"
//	@Failure		403		{object}	utils.Response	"Account blocked"
//	@Failure		429		{object}	utils.Response	"Withdrawal cooldown"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/withdrawals [post]
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	var req dto.WithdrawalRequestDTO
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	created, err := h.withdrawalService.Create(r.Context(), userID, domain.WithdrawalInput{
		Amount:      req.Amount,
		Method:      req.Method,
		AccountInfo: req.AccountInfo,
		Notes:       req.Notes,
	})
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewWithdrawal(created))
}

// List godoc
//
//	@Summary		Withdrawal history
//	@Tags			Withdrawals
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(20)
//	@Success		200		{object}	dto.WithdrawalPageDTO
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/v1/withdrawals [get]
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int64)

	page, err := h.withdrawalService.List(r.Context(), userID, utils.PageFromQuery(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWithdrawalPage(page))
}
