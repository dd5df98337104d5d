package spinrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
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

// Create records a confirmed spin. It reports false when a session with the
// same signature is already stored.
func (r *Repository) Create(ctx context.Context, s *domain.SpinSession) (bool, error) {
	query := `
		INSERT INTO spin_sessions (user_id, method, outcome, coins, signature, device_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (signature) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, s.UserID, s.Method, s.Outcome, s.Coins, s.Signature,
		s.Device.DeviceID, s.Device.IPAddress, s.Device.UserAgent).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		zap.L().Error("can't save spin session", zap.Int64("userID", s.UserID), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (r *Repository) FindBySignature(ctx context.Context, signature string) (*domain.SpinSession, error) {
	query := `
		SELECT id, user_id, method, outcome, coins, signature, device_id, ip_address, user_agent, created_at
		FROM spin_sessions
		WHERE signature = $1
	`
	var s domain.SpinSession
	err := r.db.QueryRow(ctx, query, signature).Scan(&s.ID, &s.UserID, &s.Method, &s.Outcome, &s.Coins,
		&s.Signature, &s.Device.DeviceID, &s.Device.IPAddress, &s.Device.UserAgent, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find spin session", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

// Stats counts the user's spins since dayStart and returns the time of the
// most recent spin overall.
func (r *Repository) Stats(ctx context.Context, userID int64, dayStart time.Time) (*domain.SpinStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $2 AND method = 'rewarded'),
			MAX(created_at)
		FROM spin_sessions
		WHERE user_id = $1
	`
	var stats domain.SpinStats
	err := r.db.QueryRow(ctx, query, userID, dayStart).Scan(&stats.SpinsToday, &stats.RewardedToday, &stats.LastSpinAt)
	if err != nil {
		zap.L().Error("can't load spin stats", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	return &stats, nil
}
