package dto

import (
	"time"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type WalletTxDTO struct {
	ID            int64     `json:"id"`
	Direction     string    `json:"direction" example:"credit"`
	Amount        int64     `json:"amount" example:"10"`
	BalanceAfter  int64     `json:"balanceAfter" example:"110"`
	Origin        string    `json:"origin" example:"spin"`
	ReferenceType *string   `json:"referenceType,omitempty"`
	ReferenceID   *int64    `json:"referenceId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type WalletTxPageDTO struct {
	Items []WalletTxDTO `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int           `json:"total"`
	Pages int           `json:"pages"`
}

func NewWalletTxPage(p *domain.Page[domain.WalletTx]) WalletTxPageDTO {
	items := make([]WalletTxDTO, len(p.Items))
	for i, tx := range p.Items {
		items[i] = WalletTxDTO{
			ID:            tx.ID,
			Direction:     string(tx.Direction),
			Amount:        tx.Amount,
			BalanceAfter:  tx.BalanceAfter,
			Origin:        string(tx.Origin),
			ReferenceType: tx.ReferenceType,
			ReferenceID:   tx.ReferenceID,
			CreatedAt:     tx.CreatedAt,
		}
	}
	return WalletTxPageDTO{Items: items, Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages}
}
