package models

import "errors"

// Sentinel errors for contact submission gates
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidFormat     = errors.New("invalid request format")
	ErrValidation        = errors.New("validation failed")
	ErrHoneypot          = errors.New("honeypot triggered")
	ErrTooFast           = errors.New("submission too fast")
	ErrCaptchaFailed     = errors.New("captcha verification failed")
	ErrDeliveryFailed    = errors.New("email delivery failed")
)

// SubmissionError pairs a gate sentinel with the message that is safe to
// return to the visitor.
type SubmissionError struct {
	Kind   error
	Reason string
}

// NewSubmissionError creates a SubmissionError for the given gate
func NewSubmissionError(kind error, reason string) *SubmissionError {
	return &SubmissionError{Kind: kind, Reason: reason}
}

func (e *SubmissionError) Error() string {
	return e.Kind.Error() + ": " + e.Reason
}

func (e *SubmissionError) Unwrap() error {
	return e.Kind
}
