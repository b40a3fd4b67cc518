package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/trystantbm/portfolio-contact/pkg/http"
)

// Pinger is implemented by stores that can report their reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler reports process health
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a HealthHandler. pinger may be nil.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
			return
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}
