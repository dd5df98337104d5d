package dto

import (
	"time"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type WithdrawalRequestDTO struct {
	Amount      int64  `json:"amount" validate:"required,gt=0" example:"1000"`
	Method      string `json:"method" validate:"required" example:"paypal"`
	AccountInfo string `json:"accountInfo" validate:"required,max=512" example:"player@example.com"`
	Notes       string `json:"notes" validate:"max=1024"`
}

type WithdrawalDTO struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId"`
	UserEmail      string     `json:"userEmail,omitempty"`
	Amount         int64      `json:"amount" example:"1000"`
	Fee            int64      `json:"fee" example:"50"`
	NetAmount      int64      `json:"netAmount" example:"950"`
	Method         string     `json:"method" example:"paypal"`
	AccountInfo    string     `json:"accountInfo"`
	Status         string     `json:"status" example:"pending"`
	Notes          string     `json:"notes,omitempty"`
	ProcessedBy    *int64     `json:"processedBy,omitempty"`
	ProcessorEmail *string    `json:"processorEmail,omitempty"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type WithdrawalPageDTO struct {
	Items []WithdrawalDTO `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
	Pages int             `json:"pages"`
}

type RejectRequestDTO struct {
	Reason string `json:"reason" validate:"max=1024" example:"account info mismatch"`
}

func NewWithdrawal(w *domain.WithdrawalRequest) WithdrawalDTO {
	return WithdrawalDTO{
		ID:          w.ID,
		UserID:      w.UserID,
		Amount:      w.Amount,
		Fee:         w.Fee,
		NetAmount:   w.NetAmount,
		Method:      w.Method,
		AccountInfo: w.AccountInfo,
		Status:      string(w.Status),
		Notes:       w.Notes,
		ProcessedBy: w.ProcessedBy,
		ProcessedAt: w.ProcessedAt,
		CreatedAt:   w.CreatedAt,
	}
}

func NewWithdrawalPage(p *domain.Page[domain.WithdrawalRequest]) WithdrawalPageDTO {
	items := make([]WithdrawalDTO, len(p.Items))
	for i := range p.Items {
		items[i] = NewWithdrawal(&p.Items[i])
	}
	return WithdrawalPageDTO{Items: items, Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}

func NewWithdrawalViewPage(p *domain.Page[domain.WithdrawalView]) WithdrawalPageDTO {
	items := make([]WithdrawalDTO, len(p.Items))
	for i, v := range p.Items {
		items[i] = NewWithdrawal(&v.WithdrawalRequest)
		items[i].UserEmail = v.UserEmail
		items[i].ProcessorEmail = v.ProcessorEmail
	}
	return WithdrawalPageDTO{Items: items, Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}
