package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"

	defaultMaxAttempts = 3
	defaultRetryDelay  = 20 * time.Millisecond
)

type TransactionalFn func(ctx context.Context) error

type TXManager interface {
	Begin(ctx context.Context, fn TransactionalFn) error
}

type txKey struct{}

type txState struct {
	tx    pgx.Tx
	hooks []func(context.Context)
}

type TxManager struct {
	pool        *pgxpool.Pool
	maxAttempts int
	retryDelay  time.Duration
}

func NewTXManager(pool *pgxpool.Pool, maxAttempts int) *TxManager {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &TxManager{
		pool:        pool,
		maxAttempts: maxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Begin runs fn in a transaction. A call made while ctx already carries a
// transaction joins it, so only the outermost call commits and retries.
// Serialization failures and deadlocks are retried with a doubling delay
// and reported as domain.ErrConflict once attempts are exhausted.
func (m *TxManager) Begin(ctx context.Context, fn TransactionalFn) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	delay := m.retryDelay
	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		var hooks []func(context.Context)
		hooks, err = m.run(ctx, fn)
		if err == nil {
			for _, hook := range hooks {
				hook(ctx)
			}
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		zap.L().Warn("transaction conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, err)
}

func (m *TxManager) run(ctx context.Context, fn TransactionalFn) (hooks []func(context.Context), err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	state := &txState{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				zap.L().Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return state.hooks, nil
}

// AfterCommit schedules fn to run once the transaction bound to ctx commits.
// Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.hooks = append(st.hooks, fn)
		return
	}
	fn(ctx)
}

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
