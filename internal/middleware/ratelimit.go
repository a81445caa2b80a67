package middleware

import (
	"net/http"

	"loom/internal/httputil"
	"loom/internal/ratelimit"
)

// RateLimit rejects requests over the per-user quota with 429. A nil limiter
// disables limiting (redis not configured).
func RateLimit(limiter *ratelimit.FixedWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := httputil.GetUserID(r)
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiter.Allow(key) {
				httputil.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
