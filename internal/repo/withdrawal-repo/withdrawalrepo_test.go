package withdrawalrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

var requestCols = []string{
	"id", "user_id", "amount", "fee", "net_amount", "method", "account_info", "status", "notes",
	"processed_by", "processed_at", "created_at", "updated_at",
}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func testRequest(now time.Time) *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		ID:          7,
		UserID:      1,
		Amount:      1000,
		Fee:         50,
		NetAmount:   950,
		Method:      "paypal",
		AccountInfo: "player@example.com",
		Status:      domain.WithdrawalPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func requestValues(w *domain.WithdrawalRequest) []any {
	return []any{
		w.ID, w.UserID, w.Amount, w.Fee, w.NetAmount, w.Method, w.AccountInfo, w.Status, w.Notes,
		w.ProcessedBy, w.ProcessedAt, w.CreatedAt, w.UpdatedAt,
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`
		INSERT INTO withdrawal_requests (user_id, amount, fee, net_amount, method, account_info, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "success",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(int64(1), int64(1000), int64(50), int64(950), "paypal", "player@example.com", domain.WithdrawalPending).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))
			},
		},
		{
			name: "database error",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(int64(1), int64(1000), int64(50), int64(950), "paypal", "player@example.com", domain.WithdrawalPending).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			w := testRequest(time.Time{})
			w.ID = 0
			err := repo.Create(context.Background(), w)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, int64(7), w.ID)
				assert.Equal(t, now, w.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_GetForUpdate(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	req := testRequest(now)
	query := regexp.QuoteMeta(`SELECT ` + requestColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`)

	mock.ExpectQuery(query).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(requestCols).AddRow(requestValues(req)...))
	mock.ExpectQuery(query).WithArgs(int64(8)).WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetForUpdate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, req, got)

	got, err = repo.GetForUpdate(context.Background(), 8)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LastCreatedAt(t *testing.T) {
	repo, mock := NewMock(t)
	last := time.Now().Add(-time.Hour)
	query := regexp.QuoteMeta(`SELECT MAX(created_at) FROM withdrawal_requests WHERE user_id = $1`)

	mock.ExpectQuery(query).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(&last))
	mock.ExpectQuery(query).WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow((*time.Time)(nil)))

	got, err := repo.LastCreatedAt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, last, *got)

	got, err = repo.LastCreatedAt(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`
		UPDATE withdrawal_requests
		SET status = $1, notes = $2, processed_by = $3, processed_at = now(), updated_at = now()
		WHERE id = $4`)

	admin := int64(99)
	approved := testRequest(now)
	approved.Status = domain.WithdrawalApproved
	approved.ProcessedBy = &admin
	approved.ProcessedAt = &now

	tests := []struct {
		name        string
		processedBy int64
		mockSetup   func()
		want        *domain.WithdrawalRequest
		wantErr     error
	}{
		{
			name:        "approved by admin",
			processedBy: admin,
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.WithdrawalApproved, "ok", &admin, int64(7)).
					WillReturnRows(pgxmock.NewRows(requestCols).AddRow(requestValues(approved)...))
			},
			want: approved,
		},
		{
			name: "automatic approval leaves processor empty",
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.WithdrawalApproved, "ok", (*int64)(nil), int64(7)).
					WillReturnRows(pgxmock.NewRows(requestCols).AddRow(requestValues(approved)...))
			},
			want: approved,
		},
		{
			name:        "missing request",
			processedBy: admin,
			mockSetup: func() {
				mock.ExpectQuery(query).
					WithArgs(domain.WithdrawalApproved, "ok", &admin, int64(7)).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			got, err := repo.UpdateStatus(context.Background(), 7, domain.WithdrawalApproved, "ok", tt.processedBy)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	req := testRequest(now)
	page := domain.PageRequest{Page: 2, Limit: 10}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM withdrawal_requests WHERE user_id = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`)).
		WithArgs(int64(1), 10, 10).
		WillReturnRows(pgxmock.NewRows(requestCols).AddRow(requestValues(req)...))

	items, total, err := repo.ListByUser(context.Background(), 1, page)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Equal(t, []domain.WithdrawalRequest{*req}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListForAdmin(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	req := testRequest(now)
	page := domain.PageRequest{Page: 1, Limit: 20}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM withdrawal_requests WHERE ($1 = '' OR status = $1)`)).
		WithArgs("pending").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN users p ON p.id = w.processed_by`)).
		WithArgs("pending", 20, 0).
		WillReturnRows(pgxmock.NewRows(append(requestCols, "email", "email")).
			AddRow(append(requestValues(req), "player@example.com", (*string)(nil))...))

	items, total, err := repo.ListForAdmin(context.Background(), domain.WithdrawalPending, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, *req, items[0].WithdrawalRequest)
	assert.Equal(t, "player@example.com", items[0].UserEmail)
	assert.Nil(t, items[0].ProcessorEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindPendingForAutoApproval(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	req := testRequest(now)
	query := regexp.QuoteMeta(`WHERE status = 'pending' AND amount <= $1`)

	mock.ExpectQuery(query).WithArgs(int64(5000), 50).
		WillReturnRows(pgxmock.NewRows(requestCols).AddRow(requestValues(req)...))
	mock.ExpectQuery(query).WithArgs(int64(5000), 50).
		WillReturnError(errors.New("database error"))

	items, err := repo.FindPendingForAutoApproval(context.Background(), 5000, 50)
	require.NoError(t, err)
	assert.Equal(t, []domain.WithdrawalRequest{*req}, items)

	_, err = repo.FindPendingForAutoApproval(context.Background(), 5000, 50)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
