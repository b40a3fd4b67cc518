package services

import (
	"strings"
	"time"

	"github.com/trystantbm/portfolio-contact/internal/models"
)

// DefaultMinSubmitTime is the minimum time a human needs between form render and submit
const DefaultMinSubmitTime = 3 * time.Second

// PassesHoneypot reports whether the hidden website field was left blank
func PassesHoneypot(sub *models.ContactSubmission) bool {
	return strings.TrimSpace(sub.Website) == ""
}

// PassesSubmitTiming reports whether at least minElapsed passed between the
// client-recorded render time and now. A missing render time fails.
func PassesSubmitTiming(sub *models.ContactSubmission, now time.Time, minElapsed time.Duration) bool {
	if !sub.HasRenderTime() {
		return false
	}
	return now.Sub(sub.RenderedAt) >= minElapsed
}
