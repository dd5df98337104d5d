package userrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
)

const userColumns = `id, email, password_hash, role, referral_code, referred_by, coins,
		streak_current, streak_longest, streak_last_claim, blocked, shadow_banned, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.ReferralCode, &u.ReferredBy, &u.Coins,
		&u.Streak.Current, &u.Streak.Longest, &u.Streak.LastClaimDate, &u.Blocked, &u.ShadowBanned,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (repo *Repository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(repo.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (repo *Repository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (repo *Repository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
}

// GetForUpdate locks the user row until the surrounding transaction ends.
func (repo *Repository) GetForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (repo *Repository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role, referral_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := repo.db.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Role, user.ReferralCode).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user already exists", domain.ErrDuplicate)
		}
		zap.L().Error("can't save user", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (repo *Repository) UpdateCoins(ctx context.Context, id int64, coins int64) error {
	query := `UPDATE users SET coins = $1, updated_at = now() WHERE id = $2`
	if _, err := repo.db.Exec(ctx, query, coins, id); err != nil {
		zap.L().Error("can't update coins", zap.Int64("userID", id), zap.Error(err))
		return err
	}
	return nil
}

func (repo *Repository) UpdateStreak(ctx context.Context, id int64, streak domain.Streak) error {
	query := `
		UPDATE users
		SET streak_current = $1, streak_longest = $2, streak_last_claim = $3, updated_at = now()
		WHERE id = $4
	`
	if _, err := repo.db.Exec(ctx, query, streak.Current, streak.Longest, streak.LastClaimDate, id); err != nil {
		zap.L().Error("can't update streak", zap.Int64("userID", id), zap.Error(err))
		return err
	}
	return nil
}

// SetReferredBy records the referrer once; a user that already has one
// yields domain.ErrDuplicate.
func (repo *Repository) SetReferredBy(ctx context.Context, id int64, referrerID int64) error {
	query := `UPDATE users SET referred_by = $1, updated_at = now() WHERE id = $2 AND referred_by IS NULL`
	tag, err := repo.db.Exec(ctx, query, referrerID, id)
	if err != nil {
		zap.L().Error("can't set referrer", zap.Int64("userID", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: referral already applied", domain.ErrDuplicate)
	}
	return nil
}

func (repo *Repository) SetFlags(ctx context.Context, id int64, blocked, shadowBanned bool) error {
	query := `UPDATE users SET blocked = $1, shadow_banned = $2, updated_at = now() WHERE id = $3`
	tag, err := repo.db.Exec(ctx, query, blocked, shadowBanned, id)
	if err != nil {
		zap.L().Error("can't update user flags", zap.Int64("userID", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
	}
	return nil
}

func (repo *Repository) List(ctx context.Context, search string, page domain.PageRequest) ([]domain.User, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE ($1 = '' OR email ILIKE '%' || $1 || '%')`
	if err := repo.db.QueryRow(ctx, countQuery, search).Scan(&total); err != nil {
		zap.L().Error("can't count users", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%')
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`
	rows, err := repo.db.Query(ctx, query, search, page.Limit, page.Offset())
	if err != nil {
		zap.L().Error("can't list users", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			zap.L().Error("failed to scan user row", zap.Error(err))
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
