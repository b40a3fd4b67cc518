package models

import "time"

// ContactSubmission is a single contact form post. It lives for one request
// and is never persisted.
type ContactSubmission struct {
	ID             string    `validate:"-"`
	Name           string    `validate:"utf16min=2"`
	Email          string    `validate:"required,contact_email"`
	Message        string    `validate:"utf16min=10"`
	TurnstileToken string    `validate:"required"`
	Website        string    `validate:"-"` // honeypot
	RenderedAt     time.Time `validate:"-"` // zero when the client sent no timestamp
}

// HasRenderTime reports whether the client supplied a usable form-render timestamp
func (s *ContactSubmission) HasRenderTime() bool {
	return !s.RenderedAt.IsZero()
}

// ValidationResult is the outcome of field-level checks
type ValidationResult struct {
	Valid  bool
	Reason string
}

// VerificationOutcome is the outcome of a CAPTCHA check
type VerificationOutcome struct {
	Success bool
	Error   string
}

// DeliveryOutcome is the outcome of an email dispatch
type DeliveryOutcome struct {
	Success bool
	Error   string
}
