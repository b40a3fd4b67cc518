package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/trystantbm/portfolio-contact/internal/models"
)

// ContactService runs the post-validation gates of a submission:
// honeypot, submit timing, CAPTCHA verification and delivery.
// Both bot-defense checks short-circuit before any outbound call.
type ContactService struct {
	verifier      CaptchaVerifier
	mailer        EmailService
	minSubmitTime time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewContactService creates a new ContactService
func NewContactService(verifier CaptchaVerifier, mailer EmailService, minSubmitTime time.Duration, logger *slog.Logger) *ContactService {
	return &ContactService{
		verifier:      verifier,
		mailer:        mailer,
		minSubmitTime: minSubmitTime,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit returns nil when the message was delivered, otherwise a *models.SubmissionError
func (s *ContactService) Submit(ctx context.Context, sub *models.ContactSubmission, clientKey string) error {
	// Generic message so bots can't tell which check tripped
	if !PassesHoneypot(sub) {
		return models.NewSubmissionError(models.ErrHoneypot, "Invalid submission")
	}

	if !PassesSubmitTiming(sub, s.now(), s.minSubmitTime) {
		return models.NewSubmissionError(models.ErrTooFast, "Submission too fast")
	}

	verification := s.verifier.Verify(ctx, sub.TurnstileToken, clientKey)
	if !verification.Success {
		reason := verification.Error
		if reason == "" {
			reason = "CAPTCHA verification failed"
		}
		return models.NewSubmissionError(models.ErrCaptchaFailed, reason)
	}

	delivery := s.mailer.SendContactEmail(ctx, sub)
	if !delivery.Success {
		s.logger.Error("email sending failed",
			slog.String("submission_id", sub.ID),
			slog.String("error", delivery.Error))
		return models.NewSubmissionError(models.ErrDeliveryFailed, delivery.Error)
	}

	return nil
}
