package logger

import (
	"context"
	"log/slog"
	"time"
)

// Submission audit event types, one per pipeline outcome
const (
	EventRateLimited      = "rate_limited"
	EventInvalidFormat    = "invalid_format"
	EventValidationFailed = "validation_failed"
	EventHoneypot         = "honeypot"
	EventTooFast          = "too_fast"
	EventCaptchaFailed    = "captcha_failed"
	EventDeliveryFailed   = "delivery_failed"
	EventDelivered        = "delivered"
)

// SubmissionEvent represents the outcome of one contact form submission
type SubmissionEvent struct {
	EventType    string
	SubmissionID string
	ClientKey    string
	Email        string
	Success      bool
	Reason       string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSubmission logs a contact submission outcome. The submitter email is masked.
func (al *AuditLogger) LogSubmission(ctx context.Context, event SubmissionEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "contact"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.SubmissionID != "" {
		attrs = append(attrs, slog.String("submission_id", event.SubmissionID))
	}
	if event.ClientKey != "" {
		attrs = append(attrs, slog.String("client_key", event.ClientKey))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}

	level := slog.LevelWarn
	if event.Success {
		level = slog.LevelInfo
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
