package models

import (
	"math"
	"time"
)

// RateLimitRecord tracks submissions for one client key within a window
type RateLimitRecord struct {
	Count     int
	ResetTime time.Time
}

// Expired reports whether the record's window has closed at now
func (r *RateLimitRecord) Expired(now time.Time) bool {
	return r.ResetTime.Before(now)
}

// RateLimitDecision is the result of a rate limit check.
// ResetTime is only meaningful when Allowed is false.
type RateLimitDecision struct {
	Allowed   bool
	ResetTime time.Time
}

// RetryAfterSeconds returns the whole seconds until the window resets, never less than 1
func (d RateLimitDecision) RetryAfterSeconds(now time.Time) int {
	secs := int(math.Ceil(d.ResetTime.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
