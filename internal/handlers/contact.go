package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/trystantbm/portfolio-contact/internal/models"
	pkghttp "github.com/trystantbm/portfolio-contact/pkg/http"
	pkglogger "github.com/trystantbm/portfolio-contact/pkg/logger"
)

// ContactServiceInterface defines the post-validation submission pipeline
type ContactServiceInterface interface {
	Submit(ctx context.Context, sub *models.ContactSubmission, clientKey string) error
}

// RateLimiterInterface defines the per-client submission limiter
type RateLimiterInterface interface {
	CheckRateLimit(ctx context.Context, clientKey string) models.RateLimitDecision
}

// OriginPolicy decides whether a browser origin may submit
type OriginPolicy interface {
	IsOriginAllowed(origin string) bool
}

// ContactHandler handles contact form submissions
type ContactHandler struct {
	service     ContactServiceInterface
	limiter     RateLimiterInterface
	origins     OriginPolicy
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, limiter RateLimiterInterface, origins OriginPolicy, auditLogger *pkglogger.AuditLogger) *ContactHandler {
	return &ContactHandler{
		service:     service,
		limiter:     limiter,
		origins:     origins,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Submit handles POST /api/contact. Pre-flight requests are answered by the
// CORS middleware before reaching here.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		pkghttp.WriteMethodNotAllowed(w, "Method not allowed")
		return
	}

	if !h.origins.IsOriginAllowed(r.Header.Get("Origin")) {
		pkghttp.WriteForbidden(w, "Origin not allowed")
		return
	}

	ctx := r.Context()
	clientKey := pkghttp.ClientKey(r)

	// Checked before parsing so exhausted clients always see 429
	decision := h.limiter.CheckRateLimit(ctx, clientKey)
	if !decision.Allowed {
		h.audit(ctx, pkglogger.EventRateLimited, clientKey, nil, "")
		pkghttp.WriteTooManyRequests(w, "Rate limit exceeded", decision.RetryAfterSeconds(h.now()))
		return
	}

	sub, err := ParseSubmission(r)
	if err != nil {
		h.audit(ctx, pkglogger.EventInvalidFormat, clientKey, nil, err.Error())
		pkghttp.WriteBadRequest(w, "Invalid request format")
		return
	}

	if result := ValidateSubmission(sub); !result.Valid {
		h.audit(ctx, pkglogger.EventValidationFailed, clientKey, sub, result.Reason)
		pkghttp.WriteBadRequest(w, result.Reason)
		return
	}

	if err := h.service.Submit(ctx, sub, clientKey); err != nil {
		h.writeSubmitError(ctx, w, err, clientKey, sub)
		return
	}

	h.audit(ctx, pkglogger.EventDelivered, clientKey, sub, "")
	pkghttp.WriteSuccess(w, "Message sent successfully")
}

func (h *ContactHandler) writeSubmitError(ctx context.Context, w http.ResponseWriter, err error, clientKey string, sub *models.ContactSubmission) {
	var subErr *models.SubmissionError
	reason := err.Error()
	if errors.As(err, &subErr) {
		reason = subErr.Reason
	}

	switch {
	case errors.Is(err, models.ErrHoneypot):
		h.audit(ctx, pkglogger.EventHoneypot, clientKey, sub, reason)
		pkghttp.WriteBadRequest(w, reason)
	case errors.Is(err, models.ErrTooFast):
		h.audit(ctx, pkglogger.EventTooFast, clientKey, sub, reason)
		pkghttp.WriteBadRequest(w, reason)
	case errors.Is(err, models.ErrCaptchaFailed):
		h.audit(ctx, pkglogger.EventCaptchaFailed, clientKey, sub, reason)
		pkghttp.WriteBadRequest(w, reason)
	default:
		// Provider detail stays in the log
		h.audit(ctx, pkglogger.EventDeliveryFailed, clientKey, sub, reason)
		pkghttp.WriteInternalError(w, "Failed to process submission")
	}
}

func (h *ContactHandler) audit(ctx context.Context, eventType, clientKey string, sub *models.ContactSubmission, reason string) {
	if h.auditLogger == nil {
		return
	}

	event := pkglogger.SubmissionEvent{
		EventType: eventType,
		ClientKey: clientKey,
		Success:   eventType == pkglogger.EventDelivered,
		Reason:    reason,
	}
	if sub != nil {
		event.SubmissionID = sub.ID
		event.Email = sub.Email
	}
	h.auditLogger.LogSubmission(ctx, event)
}
