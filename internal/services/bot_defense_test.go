package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trystantbm/portfolio-contact/internal/models"
	"github.com/trystantbm/portfolio-contact/internal/services"
)

func TestPassesHoneypot(t *testing.T) {
	tests := []struct {
		website  string
		expected bool
	}{
		{"", true},
		{"   ", true},
		{"http://spam-site.com", false},
		{"x", false},
	}

	for _, tt := range tests {
		sub := &models.ContactSubmission{Website: tt.website}
		assert.Equal(t, tt.expected, services.PassesHoneypot(sub), "website=%q", tt.website)
	}
}

func TestPassesSubmitTiming(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		renderedAt time.Time
		expected   bool
	}{
		{"missing timestamp", time.Time{}, false},
		{"half a second", now.Add(-500 * time.Millisecond), false},
		{"just under minimum", now.Add(-2999 * time.Millisecond), false},
		{"exactly minimum", now.Add(-3 * time.Second), true},
		{"ten seconds", now.Add(-10 * time.Second), true},
		{"future timestamp", now.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &models.ContactSubmission{RenderedAt: tt.renderedAt}
			assert.Equal(t, tt.expected, services.PassesSubmitTiming(sub, now, services.DefaultMinSubmitTime))
		})
	}
}
