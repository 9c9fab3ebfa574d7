package model

import "time"

// EndCause records why a rotation session stopped.
// The distinction matters for reporting: a budget-exhausted session could
// have continued, a signalled one was asked to stop.
type EndCause string

const (
	// EndCauseBudget means the configured change budget was reached.
	EndCauseBudget EndCause = "budget"

	// EndCauseSignal means a shutdown signal cleared the running flag.
	EndCauseSignal EndCause = "signal"

	// EndCauseError means the session aborted during initialization.
	EndCauseError EndCause = "error"
)

// String returns the end cause as a plain string.
func (c EndCause) String() string {
	return string(c)
}

// IsValid reports whether the cause is one of the known values.
func (c EndCause) IsValid() bool {
	switch c {
	case EndCauseBudget, EndCauseSignal, EndCauseError:
		return true
	}
	return false
}

// RotationEvent records a single rotation attempt: which reload strategy
// succeeded (or empty if all failed), the exit IP before and after, and
// whether the address actually changed.
type RotationEvent struct {
	// Timestamp is when the rotation was attempted.
	Timestamp time.Time `json:"timestamp"`

	// Strategy is the name of the reload strategy that reported success.
	// Empty when every strategy failed.
	Strategy string `json:"strategy,omitempty"`

	// OldIP is the exit address recorded before the rotation.
	// Empty when no baseline was known.
	OldIP string `json:"old_ip,omitempty"`

	// NewIP is the exit address observed after the rotation.
	// Empty when verification failed.
	NewIP string `json:"new_ip,omitempty"`

	// Changed is true when NewIP is non-empty and differs from OldIP.
	// Only changed rotations count against the budget.
	Changed bool `json:"changed"`

	// Error holds the failure description for reload or verification
	// problems. These are non-fatal; the loop continues.
	Error string `json:"error,omitempty"`
}

// SessionSummary describes one complete run of the rotation loop.
type SessionSummary struct {
	// ID is the database identifier, zero until persisted.
	ID int64 `json:"id,omitempty"`

	// StartedAt and EndedAt bound the session.
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	// Interval is the pause between rotations.
	Interval time.Duration `json:"interval"`

	// Budget is the requested number of IP changes; zero means unbounded.
	Budget int `json:"budget"`

	// InitialIP is the exit address observed during the startup self-test.
	InitialIP string `json:"initial_ip,omitempty"`

	// FinalIP is the last exit address observed.
	FinalIP string `json:"final_ip,omitempty"`

	// Attempts is the total number of rotations attempted.
	Attempts int `json:"attempts"`

	// Changes is the number of rotations that produced a new address.
	Changes int `json:"changes"`

	// Cause records why the session ended.
	Cause EndCause `json:"cause"`

	// Events holds the per-rotation records in order.
	Events []RotationEvent `json:"events,omitempty"`
}

// RecordEvent appends an event and updates the running totals.
func (s *SessionSummary) RecordEvent(ev RotationEvent) {
	s.Events = append(s.Events, ev)
	s.Attempts++
	if ev.Changed {
		s.Changes++
		s.FinalIP = ev.NewIP
	}
}

// Duration returns the session length, or zero when it has not ended.
func (s *SessionSummary) Duration() time.Duration {
	if s.EndedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// BudgetExhausted reports whether a nonzero budget was fully consumed.
func (s *SessionSummary) BudgetExhausted() bool {
	return s.Budget > 0 && s.Changes >= s.Budget
}
