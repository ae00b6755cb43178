// Package health exposes the syncer's own liveness and readiness state,
// adapted from a per-container health checker into a single-process status
// the supervisor updates as it moves through connect/stream/backoff phases.
package health

import (
	"sync"
	"time"
)

// Phase represents where the supervisor currently is in its lifecycle.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseStreaming   Phase = "streaming"
	PhaseLoadingACS  Phase = "loading_acs"
	PhaseBackingOff  Phase = "backing_off"
	PhaseReconnecting Phase = "reconnecting"
)

// Status tracks the supervisor's current lifecycle phase and last error.
type Status struct {
	mu           sync.RWMutex
	phase        Phase
	lastError    string
	lastOffset   int64
	updatedAt    time.Time
	startedAt    time.Time
	consecutiveFailures int
}

// NewStatus creates a new Status in the starting phase.
func NewStatus() *Status {
	now := time.Now()
	return &Status{
		phase:     PhaseStarting,
		startedAt: now,
		updatedAt: now,
	}
}

// SetPhase records a phase transition, clearing any previous error.
func (s *Status) SetPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.lastError = ""
	s.updatedAt = time.Now()
	if phase == PhaseStreaming {
		s.consecutiveFailures = 0
	}
}

// SetOffset records the last offset observed by the writer.
func (s *Status) SetOffset(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOffset = offset
	s.updatedAt = time.Now()
}

// RecordFailure records a transient failure, moves the phase to backing
// off, and increments the consecutive failure counter reported in Snapshot.
func (s *Status) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseBackingOff
	s.lastError = err.Error()
	s.consecutiveFailures++
	s.updatedAt = time.Now()
}

// Snapshot is an immutable view of Status for reporting.
type Snapshot struct {
	Phase               Phase
	LastError           string
	LastOffset          int64
	UpdatedAt           time.Time
	StartedAt           time.Time
	ConsecutiveFailures int
}

// Snapshot returns a copy of the current status.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Phase:               s.phase,
		LastError:           s.lastError,
		LastOffset:          s.lastOffset,
		UpdatedAt:           s.updatedAt,
		StartedAt:           s.startedAt,
		ConsecutiveFailures: s.consecutiveFailures,
	}
}

// Alive reports whether the process should be considered live. The syncer
// is always alive once started; liveness only goes false if the supervisor
// goroutine has stopped updating status entirely, which the caller detects
// via UpdatedAt staleness rather than this method.
func (s Snapshot) Alive() bool {
	return true
}

// Ready reports whether the syncer is starting, loading the ACS, or
// streaming. Only the phase is consulted, not ConsecutiveFailures, so a
// single recorded failure reports not ready until the phase changes.
func (s Snapshot) Ready() bool {
	return s.Phase == PhaseStreaming || s.Phase == PhaseLoadingACS || s.Phase == PhaseStarting
}
