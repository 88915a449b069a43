// Package bootstrap contains the core orchestration types that bring the
// application's external resources online in dependency order: the
// per-resource Status state machine, the Initializer contract implemented by
// every resource variant, and the Manager that computes and drives the
// initialization order.
package bootstrap

import (
	"sync"
	"time"

	"preflight/pkg/errors"
)

// State represents the lifecycle state of one resource.
// The transitions form a state machine: Pending -> Initializing ->
// {Initialized | Failed}, with Initialized advancing to Complete once the
// owning Manager confirms all dependencies are also Complete.
type State string

const (
	// StatePending is the initial state of a freshly registered resource.
	StatePending State = "pending"
	// StateInitializing indicates the three-phase lifecycle is underway.
	StateInitializing State = "initializing"
	// StateInitialized indicates the resource is connected and usable.
	StateInitialized State = "initialized"
	// StateFailed is the terminal state after any recorded error.
	StateFailed State = "failed"
	// StateError marks a fault observed outside the normal phase flow.
	StateError State = "error"
	// StateComplete indicates the resource and all of its dependencies
	// finished initialization.
	StateComplete State = "complete"
	// StateIncomplete indicates a dependency of the resource did not finish.
	StateIncomplete State = "incomplete"
	// StateUnknown is used when a tracked resource has no reported state.
	StateUnknown State = "unknown"
)

// Status is the state machine plus diagnostics bag owned by exactly one
// Initializer. The Manager holds a read-only reference for tracking.
type Status struct {
	mu        sync.RWMutex
	state     State
	data      map[string]any
	errors    []string
	warnings  []string
	startTime time.Time
	endTime   time.Time
}

// NewStatus creates a Status in the Pending state.
func NewStatus() *Status {
	return &Status{
		state: StatePending,
		data:  make(map[string]any),
	}
}

// State returns the current lifecycle state.
func (s *Status) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState transitions the status to the given state. Transitions into
// Initialized or Complete go through MarkInitialized/MarkComplete so the
// failed-state invariant cannot be bypassed.
func (s *Status) SetState(state State) error {
	if state == StateInitialized || state == StateComplete {
		return s.markSuccess(state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// AddError records an error message and forces the state to Failed, so
// error reporting and the state transition cannot diverge.
func (s *Status) AddError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	s.state = StateFailed
}

// AddWarning records a non-fatal warning message.
func (s *Status) AddWarning(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, message)
}

// AddData records a diagnostic value under key. Last write wins.
func (s *Status) AddData(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Data returns the diagnostic value stored under key.
func (s *Status) Data(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Errors returns a copy of the recorded error messages in order.
func (s *Status) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// Warnings returns a copy of the recorded warning messages in order.
func (s *Status) Warnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// StartTiming stamps the start time.
func (s *Status) StartTiming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = time.Now()
}

// EndTiming stamps the end time.
func (s *Status) EndTiming() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = time.Now()
}

// Duration returns the elapsed time between start and end. The boolean is
// false until both timestamps are present.
func (s *Status) Duration() (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() || s.endTime.IsZero() {
		return 0, false
	}
	return s.endTime.Sub(s.startTime), true
}

// MarkInitialized transitions to Initialized. It returns a usage error when
// the resource already reported a fatal condition, preventing a failed
// resource from being reported healthy.
func (s *Status) MarkInitialized() error {
	return s.markSuccess(StateInitialized)
}

// MarkComplete transitions to Complete under the same invariant as
// MarkInitialized.
func (s *Status) MarkComplete() error {
	return s.markSuccess(StateComplete)
}

func (s *Status) markSuccess(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed || (s.state == StateError && len(s.errors) > 0) || len(s.errors) > 0 {
		return errors.NewUsagef("cannot transition to %s: status is %s with %d recorded error(s)",
			state, s.state, len(s.errors))
	}
	s.state = state
	return nil
}

// Boolean predicates over the current state.

// IsPending reports whether the resource has not started initializing.
func (s *Status) IsPending() bool { return s.State() == StatePending }

// IsInitializing reports whether the three-phase lifecycle is underway.
func (s *Status) IsInitializing() bool { return s.State() == StateInitializing }

// IsInitialized reports whether the resource finished initialization.
func (s *Status) IsInitialized() bool { return s.State() == StateInitialized }

// IsFailed reports whether the resource recorded a fatal condition.
func (s *Status) IsFailed() bool { return s.State() == StateFailed }

// IsComplete reports whether the resource and its dependencies finished.
func (s *Status) IsComplete() bool { return s.State() == StateComplete }

// IsSuccess reports whether the resource is in a healthy terminal state,
// meaning Initialized or Complete.
func (s *Status) IsSuccess() bool {
	st := s.State()
	return st == StateInitialized || st == StateComplete
}

// Snapshot is a point-in-time copy of a Status for callers outside the
// orchestration, such as logging or a status endpoint.
type Snapshot struct {
	State    State          `json:"state"`
	Data     map[string]any `json:"data,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// Snapshot returns a copy of the current state, diagnostics, and timing.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		State:    s.state,
		Data:     make(map[string]any, len(s.data)),
		Errors:   append([]string(nil), s.errors...),
		Warnings: append([]string(nil), s.warnings...),
	}
	for k, v := range s.data {
		snap.Data[k] = v
	}
	if !s.startTime.IsZero() && !s.endTime.IsZero() {
		snap.Duration = s.endTime.Sub(s.startTime)
	}
	return snap
}
