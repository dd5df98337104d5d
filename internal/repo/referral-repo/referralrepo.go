package referralrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, ref *domain.Referral) error {
	query := `
		INSERT INTO referrals (inviter_id, invitee_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, ref.InviterID, ref.InviteeID, ref.Status).Scan(&ref.ID, &ref.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user %d already referred", domain.ErrDuplicate, ref.InviteeID)
		}
		zap.L().Error("can't save referral", zap.Int64("inviteeID", ref.InviteeID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) ListByInviter(ctx context.Context, inviterID int64) ([]domain.ReferralView, error) {
	query := `
		SELECT r.invitee_id, u.email, r.created_at
		FROM referrals r
		JOIN users u ON u.id = r.invitee_id
		WHERE r.inviter_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, inviterID)
	if err != nil {
		zap.L().Error("failed to fetch referrals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var views []domain.ReferralView
	for rows.Next() {
		var v domain.ReferralView
		if err := rows.Scan(&v.InviteeID, &v.InviteeEmail, &v.CreatedAt); err != nil {
			zap.L().Error("failed to scan referral row", zap.Error(err))
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
