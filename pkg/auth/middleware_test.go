package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	jwtService := NewJWTService(testSecret)
	userToken, _ := jwtService.GenerateJWT(7, "user", time.Now().Add(time.Hour))
	adminToken, _ := jwtService.GenerateJWT(1, "admin", time.Now().Add(time.Hour))

	var gotUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Context().Value(UserIDKey).(int64)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		handler    http.Handler
		wantCode   int
		wantUserID int64
	}{
		{name: "missing header", header: "", handler: Middleware(jwtService)(next), wantCode: http.StatusUnauthorized},
		{name: "malformed header", header: "Token abc", handler: Middleware(jwtService)(next), wantCode: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", handler: Middleware(jwtService)(next), wantCode: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + userToken, handler: Middleware(jwtService)(next), wantCode: http.StatusOK, wantUserID: 7},
		{name: "admin route as user", header: "Bearer " + userToken, handler: Middleware(jwtService)(AdminOnly(next)), wantCode: http.StatusForbidden},
		{name: "admin route as admin", header: "Bearer " + adminToken, handler: Middleware(jwtService)(AdminOnly(next)), wantCode: http.StatusOK, wantUserID: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = 0
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			tt.handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)
		})
	}
}
