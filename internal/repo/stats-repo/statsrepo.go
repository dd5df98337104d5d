package statsrepo

import (
	"context"
	"time"

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

// Dashboard aggregates the admin overview. "Today" starts at dayStart.
func (r *Repository) Dashboard(ctx context.Context, dayStart time.Time) (*domain.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM spin_sessions WHERE created_at >= $1),
			(SELECT COUNT(*) FROM spin_sessions WHERE created_at >= $1),
			(SELECT COALESCE(SUM(amount), 0)::bigint FROM reward_grants WHERE created_at >= $1),
			(SELECT COALESCE(SUM(coins), 0)::bigint FROM users),
			(SELECT COUNT(*) FROM withdrawal_requests WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0)::bigint FROM withdrawal_requests WHERE status = 'pending')
	`
	var s domain.DashboardStats
	err := r.db.QueryRow(ctx, query, dayStart).Scan(
		&s.TotalUsers, &s.ActiveUsersToday, &s.SpinsToday, &s.CoinsGrantedToday,
		&s.CoinsInCirculation, &s.PendingWithdrawals, &s.PendingAmount,
	)
	if err != nil {
		zap.L().Error("can't load dashboard stats", zap.Error(err))
		return nil, err
	}
	return &s, nil
}
