package routes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/trystantbm/portfolio-contact/internal/handlers"
	"github.com/trystantbm/portfolio-contact/internal/middleware"
	"github.com/trystantbm/portfolio-contact/internal/models"
	"github.com/trystantbm/portfolio-contact/internal/services"
	pkglogger "github.com/trystantbm/portfolio-contact/pkg/logger"
)

const origin = "https://trystan-tbm.dev"

type passVerifier struct{}

func (passVerifier) Verify(ctx context.Context, token, remoteIP string) models.VerificationOutcome {
	return models.VerificationOutcome{Success: true}
}

func newTestRouter() http.Handler {
	return newTestRouterWithFloodGuard(middleware.DefaultFloodGuard())
}

func newTestRouterWithFloodGuard(floodGuard middleware.FloodGuardConfig) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cors := middleware.DefaultCORSConfig(origin, false)

	contact := services.NewContactService(
		passVerifier{},
		services.NewDevEmailService(services.Sender{Address: "noreply@trystan-tbm.dev"}, "owner@example.com", logger),
		services.DefaultMinSubmitTime,
		logger,
	)
	limiter := services.NewRateLimitService(services.NewMemoryRateLimitStore(services.DefaultRateLimitPolicy()), logger)

	router := chi.NewRouter()
	RegisterRoutes(router,
		handlers.NewContactHandler(contact, limiter, cors, pkglogger.NewAuditLogger(logger)),
		handlers.NewHealthHandler(nil),
		cors,
		floodGuard,
	)
	return router
}

func TestRoutes_Preflight(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestRoutes_MethodNotAllowedKeepsCORSHeaders(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	req.Header.Set("Origin", origin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_DisallowedOriginPost(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://evil-site.com")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Origin not allowed"}`, w.Body.String())
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutes_Health(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestRoutes_FloodGuardRejectionKeepsCORSHeaders(t *testing.T) {
	router := newTestRouterWithFloodGuard(middleware.FloodGuardConfig{RequestsPerMinute: 1})

	preflight := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("CF-Connecting-IP", "203.0.113.50")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := preflight()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, origin, first.Header().Get("Access-Control-Allow-Origin"))

	second := preflight()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, origin, second.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"retryAfter"`)
}

func TestRoutes_FloodGuardRejectionOmitsCORSForDisallowedOrigin(t *testing.T) {
	router := newTestRouterWithFloodGuard(middleware.FloodGuardConfig{RequestsPerMinute: 1})

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{}`))
		req.Header.Set("Origin", "https://evil-site.com")
		req.Header.Set("CF-Connecting-IP", "203.0.113.51")
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Empty(t, last.Header().Get("Access-Control-Allow-Origin"))
}
