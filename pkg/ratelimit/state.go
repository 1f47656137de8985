// Package ratelimit implements shared request unit budget tracking and
// request gating. Accounts provision request units per second; this package
// spreads that budget across client instances via Redis and backs all of
// them off together when the service answers 429.
package ratelimit

import (
	"strconv"
	"time"
)

// Window is the accounting window for spent request units. Provisioned
// throughput replenishes every second.
const Window = time.Second

// BudgetFractionWarning marks a window as strained once this share of the
// budget is spent. Strained windows are logged but still allowed.
const BudgetFractionWarning = 0.8

// Redis keys for shared budget state storage.
const (
	RedisKeyUsedPrefix   = "docdb:budget:used:"
	RedisKeyBackoffUntil = "docdb:budget:backoff_until"
)

// WindowKey returns the Redis key holding the spent units of the window
// containing t.
func WindowKey(t time.Time) string {
	return RedisKeyUsedPrefix + strconv.FormatInt(t.Unix(), 10)
}

// BudgetState represents the request unit budget of the current window.
// This state is shared across all client instances via Redis.
type BudgetState struct {
	// Used is the number of request units spent in the current window.
	Used float64 `json:"used"`

	// Budget is the number of request units available per window.
	Budget float64 `json:"budget"`

	// BackoffUntil is the end of a service-imposed suspension. Set when
	// any instance receives a 429 with a retry-after hint.
	BackoffUntil time.Time `json:"backoff_until"`

	// LastUpdate is the timestamp when this state was assembled.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates the window has comfortable headroom.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the unspent request units of the window, never negative.
func (s *BudgetState) Remaining() float64 {
	remaining := s.Budget - s.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InBackoff returns true while a service-imposed suspension is active.
func (s *BudgetState) InBackoff() bool {
	return time.Now().Before(s.BackoffUntil)
}

// NeedsCriticalBlock returns true if requests should be blocked, either
// because the window's budget is spent or a suspension is active.
func (s *BudgetState) NeedsCriticalBlock() bool {
	if s.InBackoff() {
		return true
	}
	return s.Budget > 0 && s.Used >= s.Budget
}

// NeedsThrottling returns true when the window is strained but not blocked.
func (s *BudgetState) NeedsThrottling() bool {
	return !s.NeedsCriticalBlock() && s.Budget > 0 && s.Used >= BudgetFractionWarning*s.Budget
}

// TimeUntilBackoffEnds returns the remaining suspension time.
// Returns 0 if no suspension is active.
func (s *BudgetState) TimeUntilBackoffEnds() time.Duration {
	duration := time.Until(s.BackoffUntil)
	if duration < 0 {
		return 0
	}
	return duration
}

// IsStale returns true if the state data is older than the given duration.
func (s *BudgetState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// UpdateHealth updates the IsHealthy field from the current window state.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = !s.NeedsCriticalBlock() && !s.NeedsThrottling()
}
