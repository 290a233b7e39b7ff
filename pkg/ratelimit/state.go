// Package ratelimit implements request gating for the Web API's rolling
// rate limit. A 429 response announces a penalty window via Retry-After;
// the window is shared across client instances through Redis so one
// process learning about a penalty stops the whole fleet. A local token
// bucket keeps a single process from provoking the penalty on its own.
package ratelimit

import (
	"time"
)

// Redis keys for shared rate limit state.
const (
	RedisKeyPenaltyUntil = "spotify:rate_limit:penalty_until"
	RedisKeyLastUpdate   = "spotify:rate_limit:last_update"
)

// DefaultRequestsPerMinute is the local budget, kept below the service's
// observed rolling-window limit so normal operation never trips a 429.
const DefaultRequestsPerMinute = 180

// MaxRetryAfter caps the penalty window accepted from the server. A
// bogus Retry-After of hours would otherwise freeze the fleet.
const MaxRetryAfter = 5 * time.Minute

// State is the shared penalty state, as read from Redis.
type State struct {
	// PenaltyUntil is when the current penalty window ends. Zero when
	// no penalty is active.
	PenaltyUntil time.Time `json:"penalty_until"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// InPenalty reports whether a penalty window is currently open.
func (s *State) InPenalty() bool {
	return time.Now().Before(s.PenaltyUntil)
}

// PenaltyRemaining returns the time until the penalty window closes.
// Returns 0 when no penalty is active.
func (s *State) PenaltyRemaining() time.Duration {
	remaining := time.Until(s.PenaltyUntil)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
