package httpapi

import (
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// WithRateLimit applies a global token-bucket limit to the API. Requests over
// the limit receive 429 without reaching the handlers.
func WithRateLimit(next http.Handler, perSecond float64, burst int) http.Handler {
	if perSecond <= 0 {
		perSecond = 50
	}
	if burst <= 0 {
		burst = 100
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
