package spin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/auth"
)

func NewMock(t *testing.T) (*SpinHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
}

func TestPrefetchHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Successful prefetch",
			prepareMock: func() {
				service.EXPECT().Prefetch(gomock.Any(), int64(1)).Return(&domain.SpinPrefetch{CanSpin: true, SpinsToday: 3}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Blocked user",
			prepareMock: func() {
				service.EXPECT().Prefetch(gomock.Any(), int64(1)).Return(nil, domain.ErrForbidden)
			},
			expectedCode: http.StatusForbidden,
		},
		{
			name: "Internal server error",
			prepareMock: func() {
				service.EXPECT().Prefetch(gomock.Any(), int64(1)).Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/spin/prefetch", nil), 1)
			w := httptest.NewRecorder()

			handler.Prefetch(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				var body domain.SpinPrefetch
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.True(t, body.CanSpin)
				assert.Equal(t, 3, body.SpinsToday)
			}
		})
	}
}

func TestStartHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Successful start",
			body: `{"method":"free","device":{"deviceId":"d-1"}}`,
			prepareMock: func() {
				service.EXPECT().Start(gomock.Any(), int64(1), domain.SpinFree, gomock.Any()).
					DoAndReturn(func(ctx context.Context, userID int64, method domain.SpinMethod, device domain.DeviceInfo) (*domain.SpinStart, error) {
						assert.Equal(t, "d-1", device.DeviceID)
						assert.Equal(t, "spin-test", device.UserAgent)
						return &domain.SpinStart{Outcome: "10", Coins: 10, Token: "tok"}, nil
					})
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Unknown method",
			body:         `{"method":"bonus"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Invalid body",
			body:         `{"method":`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Daily cap reached",
			body: `{"method":"rewarded"}`,
			prepareMock: func() {
				service.EXPECT().Start(gomock.Any(), int64(1), domain.SpinRewarded, gomock.Any()).
					Return(nil, fmt.Errorf("%w: daily spin limit", domain.ErrCapExceeded))
			},
			expectedCode: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/spin/start", bytes.NewBufferString(tt.body)), 1)
			r.Header.Set("User-Agent", "spin-test")
			w := httptest.NewRecorder()

			handler.Start(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestConfirmHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
		expected     *domain.SpinConfirm
	}{
		{
			name: "Successful confirm",
			body: `{"token":"tok","method":"free"}`,
			prepareMock: func() {
				service.EXPECT().Confirm(gomock.Any(), int64(1), "tok", domain.SpinFree, gomock.Any()).
					Return(&domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 10}, nil)
			},
			expectedCode: http.StatusOK,
			expected:     &domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 10},
		},
		{
			name: "Replayed confirm",
			body: `{"token":"tok","method":"free"}`,
			prepareMock: func() {
				service.EXPECT().Confirm(gomock.Any(), int64(1), "tok", domain.SpinFree, gomock.Any()).
					Return(&domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 10, Replayed: true}, nil)
			},
			expectedCode: http.StatusOK,
			expected:     &domain.SpinConfirm{Outcome: "10", Coins: 10, BalanceAfter: 10, Replayed: true},
		},
		{
			name:         "Missing token",
			body:         `{"method":"free"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Expired token",
			body: `{"token":"old","method":"free"}`,
			prepareMock: func() {
				service.EXPECT().Confirm(gomock.Any(), int64(1), "old", domain.SpinFree, gomock.Any()).
					Return(nil, fmt.Errorf("%w: spin token expired", domain.ErrValidation))
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Serialization conflict",
			body: `{"token":"tok","method":"free"}`,
			prepareMock: func() {
				service.EXPECT().Confirm(gomock.Any(), int64(1), "tok", domain.SpinFree, gomock.Any()).
					Return(nil, domain.ErrConflict)
			},
			expectedCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/spin/confirm", bytes.NewBufferString(tt.body)), 1)
			w := httptest.NewRecorder()

			handler.Confirm(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expected != nil {
				var body domain.SpinConfirm
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, *tt.expected, body)
			}
		})
	}
}
