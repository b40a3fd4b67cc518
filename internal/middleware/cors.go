package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

const localhostOriginPrefix = "http://localhost:"

// CORSConfig holds CORS configuration for the contact endpoint
type CORSConfig struct {
	ProductionOrigin string
	// DevMode additionally allows any http://localhost:<port> origin
	DevMode        bool
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // seconds the browser may cache a pre-flight decision
}

// DefaultCORSConfig returns the contact endpoint policy: POST with a JSON or
// form body, pre-flight cached for 24 hours
func DefaultCORSConfig(productionOrigin string, devMode bool) *CORSConfig {
	return &CORSConfig{
		ProductionOrigin: productionOrigin,
		DevMode:          devMode,
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		MaxAge:           86400,
	}
}

// IsOriginAllowed reports whether origin may call the endpoint. A missing
// origin is never allowed.
func (c *CORSConfig) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}

	if origin == c.ProductionOrigin {
		return true
	}

	if c.DevMode && strings.HasPrefix(origin, localhostOriginPrefix) {
		return isPort(origin[len(localhostOriginPrefix):])
	}

	return false
}

func isPort(s string) bool {
	port, err := strconv.Atoi(s)
	return err == nil && port > 0 && port <= 65535 && strconv.Itoa(port) == s
}

// CORS answers pre-flight requests and attaches CORS headers to every other
// response if and only if the origin is allowed.
// Disallowed pre-flights get a bare 403.
func CORS(config *CORSConfig) func(http.Handler) http.Handler {
	headers := CORSHeaders(config)
	preflight := Preflight(config)
	return func(next http.Handler) http.Handler {
		return headers(preflight(next))
	}
}

// CORSHeaders attaches CORS headers for allowed origins. Middleware placed
// after it, such as the flood guard, keeps them on early rejections.
func CORSHeaders(config *CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			w.Header().Add("Vary", "Origin")

			if config.IsOriginAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Preflight answers OPTIONS requests: 204 with Max-Age for allowed origins,
// a bare 403 otherwise
func Preflight(config *CORSConfig) func(http.Handler) http.Handler {
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !config.IsOriginAllowed(r.Header.Get("Origin")) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
