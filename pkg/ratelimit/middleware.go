package ratelimit

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/pkg/metrics"
	"github.com/GlebRadaev/spinearn/pkg/utils"
)

// KeyFunc derives the limiter key of a request.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the per-key budget with 429.
func Middleware(store *Store, route string, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + keyFn(r)
			if !store.Allow(key) {
				zap.L().Warn("http rate limited", zap.String("route", route), zap.String("key", key))
				metrics.RateLimitBlockTotal.WithLabelValues(route).Inc()
				utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
