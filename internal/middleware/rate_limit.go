package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	pkghttp "github.com/trystantbm/portfolio-contact/pkg/http"
)

// FloodGuardConfig holds the coarse per-client limit applied to every route
type FloodGuardConfig struct {
	RequestsPerMinute int
}

// DefaultFloodGuard returns 60 requests per minute per client
func DefaultFloodGuard() FloodGuardConfig {
	return FloodGuardConfig{
		RequestsPerMinute: 60,
	}
}

// FloodGuard limits raw request volume per client key, including pre-flights
// that never reach the contact rate limiter. A non-positive limit disables it.
func FloodGuard(config FloodGuardConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ClientKey(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", 60)
		}),
	)
}
