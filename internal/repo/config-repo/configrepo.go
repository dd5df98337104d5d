package configrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const EconomyKey = "economy"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Get loads the stored config for key, nil if none was saved yet.
func (r *Repository) Get(ctx context.Context, key string) (*domain.EconomyConfig, error) {
	query := `SELECT version, payload, updated_at FROM economy_config WHERE key = $1`
	var (
		cfg     domain.EconomyConfig
		version int64
		payload []byte
	)
	err := r.db.QueryRow(ctx, query, key).Scan(&version, &payload, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't load economy config", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	updatedAt := cfg.UpdatedAt
	if err := json.Unmarshal(payload, &cfg); err != nil {
		zap.L().Error("can't decode economy config", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: stored config is malformed: %v", domain.ErrConfig, err)
	}
	cfg.Version = version
	cfg.UpdatedAt = updatedAt
	return &cfg, nil
}

// Save stores cfg as the version following expectedVersion and appends it to
// the history. expectedVersion 0 creates the row. A concurrent writer that got
// there first yields domain.ErrInvalidState.
func (r *Repository) Save(ctx context.Context, key string, cfg *domain.EconomyConfig, expectedVersion int64, updatedBy int64) (*domain.EconomyConfig, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var by *int64
	if updatedBy != 0 {
		by = &updatedBy
	}

	var row pgx.Row
	if expectedVersion == 0 {
		row = r.db.QueryRow(ctx, `
			INSERT INTO economy_config (key, version, payload, updated_by)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (key) DO NOTHING
			RETURNING version, updated_at
		`, key, payload, by)
	} else {
		row = r.db.QueryRow(ctx, `
			UPDATE economy_config
			SET version = version + 1, payload = $2, updated_by = $3, updated_at = now()
			WHERE key = $1 AND version = $4
			RETURNING version, updated_at
		`, key, payload, by, expectedVersion)
	}

	saved := *cfg
	if err := row.Scan(&saved.Version, &saved.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: config version %d is stale", domain.ErrInvalidState, expectedVersion)
		}
		zap.L().Error("can't save economy config", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	query := `INSERT INTO economy_config_history (key, version, payload, updated_by) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, query, key, saved.Version, payload, by); err != nil {
		zap.L().Error("can't save economy config history", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return &saved, nil
}
