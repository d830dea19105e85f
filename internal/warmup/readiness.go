package warmup

import (
	"sync/atomic"
	"time"
)

// ReadinessState tracks whether the initial index build has finished.
// The service reports ready once MarkReady is called or the grace
// period has elapsed, whichever comes first. The ready flag is atomic;
// startTime and grace are immutable after construction.
type ReadinessState struct {
	ready     atomic.Bool
	startTime time.Time
	grace     time.Duration
}

// ReadinessStatus is the /readyz response payload.
type ReadinessStatus struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// NewReadinessState creates a state that starts as not ready.
func NewReadinessState(grace time.Duration) *ReadinessState {
	return &ReadinessState{
		startTime: time.Now(),
		grace:     grace,
	}
}

// IsReady reports whether the service should accept interview traffic.
// True once MarkReady was called, or once the grace period has elapsed
// so a slow vector build cannot block the deployment forever.
func (s *ReadinessState) IsReady() bool {
	if s.ready.Load() {
		return true
	}
	return time.Since(s.startTime) >= s.grace
}

// MarkReady records that the initial warmup finished.
func (s *ReadinessState) MarkReady() {
	s.ready.Store(true)
}

// Completed reports whether MarkReady was called, ignoring the grace
// period fallthrough.
func (s *ReadinessState) Completed() bool {
	return s.ready.Load()
}

// Status returns the current state for the readiness endpoint.
func (s *ReadinessState) Status() ReadinessStatus {
	elapsed := time.Since(s.startTime)
	ready := s.IsReady()

	status := ReadinessStatus{
		Ready:          ready,
		ElapsedSeconds: int(elapsed.Seconds()),
		TimeoutSeconds: int(s.grace.Seconds()),
	}

	if !ready {
		status.Reason = "index build in progress"
	} else if !s.ready.Load() {
		status.Reason = "grace period reached (index build may still be running)"
	}

	return status
}
