package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/foxzi/contracte/internal/ipfilter"
)

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (l *Limiter) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := &Request{}
			if addr, ok := ipfilter.ClientAddr(r); ok {
				req.IP = addr.String()
			}

			res := l.Allow(r.Context(), req)
			if !res.Allowed {
				logger.Warn("render rate limit exceeded",
					"level", res.DeniedBy,
					"key", res.DeniedKey,
					"retry_after", res.RetryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Render limit exceeded","code":"RATE_LIMITED"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
