package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit creates rate limiting middleware keyed by token subject when authenticated and by
// client IP otherwise.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(windowLength.Seconds()))

	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if subject := GetSubject(r.Context()); subject != "" {
				return "subject:" + subject, nil
			}
			ip, err := httprate.KeyByIP(r)
			if err != nil {
				return "", err
			}
			return "ip:" + ip, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + retryAfter + `}`))
		}),
	)
}
