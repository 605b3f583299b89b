// Package attempts tracks verification attempt exhaustion per user and
// enforces the cooldown before a user may start over.
package attempts

import "time"

// Record is the per-user attempt-exhaustion state.
type Record struct {
	UserID        string     `json:"user_id"`
	FailureCount  int        `json:"failure_count"`
	LastFailureAt time.Time  `json:"last_failure_at"`
	CanStartAfter *time.Time `json:"can_start_after,omitempty"`
}

// IsCoolingDownAt reports whether the user is inside an enforced cooldown.
func (r *Record) IsCoolingDownAt(now time.Time) bool {
	return r.CanStartAfter != nil && now.Before(*r.CanStartAfter)
}

// Result is the outcome of a cooldown check.
type Result struct {
	Allowed       bool
	RetryAfter    int
	CanStartAfter *time.Time
	FailureCount  int
}
