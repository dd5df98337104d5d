package withdrawalrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const requestColumns = `id, user_id, amount, fee, net_amount, method, account_info, status, notes,
		processed_by, processed_at, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanRequest(row pgx.Row, extra ...any) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	dest := []any{
		&w.ID, &w.UserID, &w.Amount, &w.Fee, &w.NetAmount, &w.Method, &w.AccountInfo, &w.Status, &w.Notes,
		&w.ProcessedBy, &w.ProcessedAt, &w.CreatedAt, &w.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (user_id, amount, fee, net_amount, method, account_info, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, w.UserID, w.Amount, w.Fee, w.NetAmount, w.Method, w.AccountInfo, w.Status).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save withdrawal request", zap.Int64("userID", w.UserID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query string, id int64) (*domain.WithdrawalRequest, error) {
	w, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find withdrawal request", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return w, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM withdrawal_requests WHERE id = $1`, id)
}

// GetForUpdate locks the request row until the surrounding transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
}

// LastCreatedAt returns when the user last asked for a withdrawal, nil if never.
func (r *Repository) LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `SELECT MAX(created_at) FROM withdrawal_requests WHERE user_id = $1`, userID).Scan(&last)
	if err != nil {
		zap.L().Error("can't load last withdrawal time", zap.Int64("userID", userID), zap.Error(err))
		return nil, err
	}
	return last, nil
}

// UpdateStatus moves a request to a terminal status. A zero processedBy
// leaves processed_by empty, as for automatic approvals.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus, notes string, processedBy int64) (*domain.WithdrawalRequest, error) {
	var by *int64
	if processedBy != 0 {
		by = &processedBy
	}
	query := `
		UPDATE withdrawal_requests
		SET status = $1, notes = $2, processed_by = $3, processed_at = now(), updated_at = now()
		WHERE id = $4
		RETURNING ` + requestColumns
	w, err := scanRequest(r.db.QueryRow(ctx, query, status, notes, by, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: withdrawal %d", domain.ErrNotFound, id)
		}
		zap.L().Error("can't update withdrawal status", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return w, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WithdrawalRequest, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawal_requests WHERE user_id = $1`, userID).Scan(&total); err != nil {
		zap.L().Error("can't count withdrawals", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT ` + requestColumns + ` FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, page.Limit, page.Offset())
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var withdrawals []domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanRequest(rows)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, 0, err
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return withdrawals, total, nil
}

// ListForAdmin pages through requests with the requester and processor
// emails. An empty status lists every request.
func (r *Repository) ListForAdmin(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) ([]domain.WithdrawalView, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM withdrawal_requests WHERE ($1 = '' OR status = $1)`
	if err := r.db.QueryRow(ctx, countQuery, string(status)).Scan(&total); err != nil {
		zap.L().Error("can't count withdrawals", zap.Error(err))
		return nil, 0, err
	}

	query := `
		SELECT w.id, w.user_id, w.amount, w.fee, w.net_amount, w.method, w.account_info, w.status, w.notes,
			w.processed_by, w.processed_at, w.created_at, w.updated_at, u.email, p.email
		FROM withdrawal_requests w
		JOIN users u ON u.id = w.user_id
		LEFT JOIN users p ON p.id = w.processed_by
		WHERE ($1 = '' OR w.status = $1)
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, string(status), page.Limit, page.Offset())
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var views []domain.WithdrawalView
	for rows.Next() {
		var view domain.WithdrawalView
		w, err := scanRequest(rows, &view.UserEmail, &view.ProcessorEmail)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, 0, err
		}
		view.WithdrawalRequest = *w
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// FindPendingForAutoApproval returns the oldest pending requests whose amount
// does not exceed maxAmount.
func (r *Repository) FindPendingForAutoApproval(ctx context.Context, maxAmount int64, limit int) ([]domain.WithdrawalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM withdrawal_requests
		WHERE status = 'pending' AND amount <= $1
		ORDER BY created_at, id
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, maxAmount, limit)
	if err != nil {
		zap.L().Error("failed to fetch pending withdrawals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanRequest(rows)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	return withdrawals, rows.Err()
}
