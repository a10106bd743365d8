package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/sauldoescode/saul.app/pkg/ratelimit"
)

// RateLimit rejects requests with 429 once the client IP exhausts its
// bucket in limiter. Requests without a resolvable IP pass through.
func RateLimit(limiter *ratelimit.Keyed, trusted *TrustedProxies, metrics *Metrics) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "ratelimit")
	retryAfter := "1"
	if l := limiter.Limit(); l > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(l))))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trusted)
			if ip != "" && !limiter.Allow(ip) {
				logger.Debug("rate limited", "ip", ip, "path", r.URL.Path)
				metrics.RecordRateLimited()
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
