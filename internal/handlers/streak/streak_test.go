package streak

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/auth"
)

func NewMock(t *testing.T) (*StreakHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func request(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(context.WithValue(context.Background(), auth.UserIDKey, int64(1)))
}

func TestGetHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Get(gomock.Any(), int64(1)).Return(&domain.StreakStatus{Current: 2, Longest: 4, CanClaim: true, NextReward: 15}, nil)
	w := httptest.NewRecorder()
	handler.Get(w, request(http.MethodGet, "/api/v1/streak"))
	assert.Equal(t, http.StatusOK, w.Code)
	var body domain.StreakStatus
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, int64(15), body.NextReward)

	service.EXPECT().Get(gomock.Any(), int64(1)).Return(nil, errors.New("db down"))
	w = httptest.NewRecorder()
	handler.Get(w, request(http.MethodGet, "/api/v1/streak"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClaimHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Successful claim",
			prepareMock: func() {
				service.EXPECT().Claim(gomock.Any(), int64(1)).Return(&domain.StreakClaim{Current: 1, Longest: 1, Reward: 5, BalanceAfter: 5}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Already claimed",
			prepareMock: func() {
				service.EXPECT().Claim(gomock.Any(), int64(1)).Return(nil, domain.ErrAlreadyClaimed)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "Restricted user",
			prepareMock: func() {
				service.EXPECT().Claim(gomock.Any(), int64(1)).Return(nil, domain.ErrForbidden)
			},
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			w := httptest.NewRecorder()
			handler.Claim(w, request(http.MethodPost, "/api/v1/streak/claim"))
			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}
