package ledgerrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const (
	grantColumns = `id, user_id, reason, amount, idempotency_key, metadata, created_at`
	txColumns    = `id, user_id, direction, amount, balance_after, origin, reference_type, reference_id, created_at`
)

// Repository stores reward grants and wallet transactions. Both tables are
// append-only.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// CreateGrant inserts g and reports false without error when a grant with
// the same idempotency key already exists.
func (r *Repository) CreateGrant(ctx context.Context, g *domain.RewardGrant) (bool, error) {
	query := `
		INSERT INTO reward_grants (user_id, reason, amount, idempotency_key, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`
	metadata := g.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	err := r.db.QueryRow(ctx, query, g.UserID, g.Reason, g.Amount, g.IdempotencyKey, metadata).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		zap.L().Error("can't save reward grant", zap.Int64("userID", g.UserID), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (r *Repository) FindGrantByIdempotencyKey(ctx context.Context, key string) (*domain.RewardGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM reward_grants WHERE idempotency_key = $1`
	var g domain.RewardGrant
	err := r.db.QueryRow(ctx, query, key).
		Scan(&g.ID, &g.UserID, &g.Reason, &g.Amount, &g.IdempotencyKey, &g.Metadata, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find reward grant", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return &g, nil
}

func (r *Repository) CreateTx(ctx context.Context, tx *domain.WalletTx) error {
	query := `
		INSERT INTO wallet_txs (user_id, direction, amount, balance_after, origin, reference_type, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, tx.UserID, tx.Direction, tx.Amount, tx.BalanceAfter, tx.Origin, tx.ReferenceType, tx.ReferenceID).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		zap.L().Error("can't save wallet tx", zap.Int64("userID", tx.UserID), zap.Error(err))
		return err
	}
	return nil
}

func scanTx(row pgx.Row) (*domain.WalletTx, error) {
	var tx domain.WalletTx
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Direction, &tx.Amount, &tx.BalanceAfter, &tx.Origin,
		&tx.ReferenceType, &tx.ReferenceID, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindTxByReference returns the latest wallet transaction pointing at the
// given grant or withdrawal.
func (r *Repository) FindTxByReference(ctx context.Context, refType string, refID int64) (*domain.WalletTx, error) {
	query := `SELECT ` + txColumns + ` FROM wallet_txs
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY id DESC
		LIMIT 1`
	tx, err := scanTx(r.db.QueryRow(ctx, query, refType, refID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find wallet tx", zap.String("refType", refType), zap.Int64("refID", refID), zap.Error(err))
		return nil, err
	}
	return tx, nil
}

func (r *Repository) ListTxByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WalletTx, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_txs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		zap.L().Error("can't count wallet txs", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT ` + txColumns + ` FROM wallet_txs
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, page.Limit, page.Offset())
	if err != nil {
		zap.L().Error("can't list wallet txs", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.WalletTx
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			zap.L().Error("failed to scan wallet tx row", zap.Error(err))
			return nil, 0, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// CoinsEarnedSince sums grants since t, leaving out admin credits such as
// withdrawal refunds.
func (r *Repository) CoinsEarnedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM reward_grants
		WHERE user_id = $1 AND created_at >= $2 AND reason <> 'admin'
	`
	var sum int64
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&sum); err != nil {
		zap.L().Error("can't sum earned coins", zap.Int64("userID", userID), zap.Error(err))
		return 0, err
	}
	return sum, nil
}

func (r *Repository) CountGrantsSince(ctx context.Context, userID int64, reason domain.GrantReason, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM reward_grants WHERE user_id = $1 AND reason = $2 AND created_at >= $3`
	var n int
	if err := r.db.QueryRow(ctx, query, userID, reason, since).Scan(&n); err != nil {
		zap.L().Error("can't count grants", zap.Int64("userID", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// LedgerBalance replays the user's wallet transactions.
func (r *Repository) LedgerBalance(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)::bigint
		FROM wallet_txs
		WHERE user_id = $1
	`
	var sum int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		zap.L().Error("can't replay ledger", zap.Int64("userID", userID), zap.Error(err))
		return 0, err
	}
	return sum, nil
}

// FindDrift lists users whose stored balance differs from their ledger.
func (r *Repository) FindDrift(ctx context.Context, limit int) ([]domain.LedgerDrift, error) {
	query := `
		SELECT u.id, u.coins, COALESCE(l.total, 0)::bigint
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END) AS total
			FROM wallet_txs
			GROUP BY user_id
		) l ON l.user_id = u.id
		WHERE u.coins <> COALESCE(l.total, 0)
		ORDER BY u.id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		zap.L().Error("can't reconcile ledger", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var drifts []domain.LedgerDrift
	for rows.Next() {
		var d domain.LedgerDrift
		if err := rows.Scan(&d.UserID, &d.Coins, &d.LedgerAmount); err != nil {
			zap.L().Error("failed to scan drift row", zap.Error(err))
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
