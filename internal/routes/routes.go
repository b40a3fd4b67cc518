package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/trystantbm/portfolio-contact/internal/handlers"
	"github.com/trystantbm/portfolio-contact/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	contactHandler *handlers.ContactHandler,
	healthHandler *handlers.HealthHandler,
	corsConfig *middleware.CORSConfig,
	floodGuard middleware.FloodGuardConfig,
) {
	// CORS headers go on before the flood guard so its 429 stays readable
	// by the browser. Pre-flights are answered behind the guard.
	// Every method reaches the contact handler so non-POST gets a JSON 405.
	router.With(
		middleware.CORSHeaders(corsConfig),
		middleware.FloodGuard(floodGuard),
		middleware.Preflight(corsConfig),
	).HandleFunc("/api/contact", contactHandler.Submit)

	router.With(middleware.FloodGuard(floodGuard)).Get("/health", healthHandler.Health)
}
