// Package ratelimit implements request budget tracking and request gating
// for the HRMS backend's gateway. It monitors the X-RateLimit-Remaining and
// X-RateLimit-Reset headers to back off before the gateway starts rejecting
// requests from this process outright.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage. State is shared across all
// client processes talking to the same backend.
const (
	RedisKeyRequestsRemaining = "hrms:rate_limit:requests_remaining"
	RedisKeyResetTimestamp    = "hrms:rate_limit:reset_timestamp"
	RedisKeyLastUpdate        = "hrms:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining budget falls
	// below this value, leaving headroom for requests already in flight.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when the remaining budget falls
	// below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation; no restrictions apply
	// at or above this value.
	ThresholdHealthy = 50
)

// State represents the current gateway rate limit state.
type State struct {
	// RequestsRemaining is the number of requests allowed before the gateway
	// starts rejecting. Extracted from the X-RateLimit-Remaining header.
	RequestsRemaining int `json:"requests_remaining"`

	// ResetAt is the timestamp when the rate limit window resets.
	// Calculated from the X-RateLimit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when RequestsRemaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.RequestsRemaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled.
func (s *State) NeedsThrottling() bool {
	return s.RequestsRemaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the rate limit window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current RequestsRemaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.RequestsRemaining >= ThresholdHealthy
}
