package referrals

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/dto"
	"github.com/GlebRadaev/spinearn/pkg/auth"
)

func NewMock(t *testing.T) (*ReferralHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func TestApplyHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Successful apply",
			body: `{"code":"7992739871"}`,
			prepareMock: func() {
				service.EXPECT().Apply(gomock.Any(), int64(1), "7992739871").
					Return(&domain.ReferralResult{InviterID: 2, Bonus: 25, BalanceAfter: 25}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Code with letters",
			body:         `{"code":"79927398ab"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Already applied",
			body: `{"code":"7992739871"}`,
			prepareMock: func() {
				service.EXPECT().Apply(gomock.Any(), int64(1), "7992739871").Return(nil, domain.ErrDuplicate)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "Unknown code",
			body: `{"code":"7992739871"}`,
			prepareMock: func() {
				service.EXPECT().Apply(gomock.Any(), int64(1), "7992739871").Return(nil, domain.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/referrals/apply", bytes.NewBufferString(tt.body))
			r = r.WithContext(context.WithValue(context.Background(), auth.UserIDKey, int64(1)))
			w := httptest.NewRecorder()

			handler.Apply(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestListHandler(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().List(gomock.Any(), int64(1)).Return(&domain.ReferralSummary{
		Code:     "7992739871",
		Count:    1,
		Invitees: []domain.ReferralView{{InviteeID: 3, InviteeEmail: "friend@example.com"}},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/referrals", nil)
	r = r.WithContext(context.WithValue(context.Background(), auth.UserIDKey, int64(1)))
	w := httptest.NewRecorder()
	handler.List(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var body dto.ReferralsResponseDTO
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "7992739871", body.Code)
	assert.Equal(t, "friend@example.com", body.Invitees[0].Email)
}
