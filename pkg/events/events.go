// Package events records the synchronizer's lifecycle transitions (stream
// open/close, ACS load progress, reconnect backoff, token refresh) for the
// health endpoint to surface. Unlike a cluster control plane, where many
// independent watchers need their own fanout channel for service/node/task
// events, this process has exactly one consumer of its own history: the
// diagnostics endpoint a human hits while debugging a stuck sync. So
// lifecycle transitions are kept as a small deduplicated ring buffer
// behind a mutex rather than a subscriber broker: no per-subscriber
// channels, no broadcast loop, no goroutine to start or stop.
package events

import (
	"sync"
	"time"
)

// EventType tags a supervisor lifecycle transition.
type EventType string

const (
	EventStreamOpened    EventType = "stream.opened"
	EventStreamClosed    EventType = "stream.closed"
	EventBatchCommitted  EventType = "batch.committed"
	EventIdleDisconnect  EventType = "stream.idle_disconnect"
	EventACSLoadStarted  EventType = "acs.load_started"
	EventACSLoadFinished EventType = "acs.load_finished"
	EventTokenRefreshed  EventType = "token.refreshed"
	EventBackoff         EventType = "supervisor.backoff"
)

// historyLimit bounds how many distinct transitions Recorder retains.
// Older entries fall off the front once the limit is reached.
const historyLimit = 50

// Event is one recorded lifecycle transition. Count tracks how many times
// Type fired back-to-back: a ledger outage produces one EventBackoff per
// retry, and without coalescing a long outage would push every other kind
// of history out of the ring. Collapsing repeats into a growing Count
// keeps the history useful across a reconnect storm instead of just long.
type Event struct {
	Type      EventType
	Message   string
	Timestamp time.Time
	Count     int
}

// Recorder is the synchronizer's lifecycle history. The zero value is
// ready to use.
type Recorder struct {
	mu      sync.Mutex
	history []Event
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records a transition of typ, coalescing it into the previous
// entry when that entry has the same Type.
func (r *Recorder) Publish(typ EventType, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if n := len(r.history); n > 0 {
		if last := &r.history[n-1]; last.Type == typ {
			last.Count++
			last.Message = message
			last.Timestamp = now
			return
		}
	}

	r.history = append(r.history, Event{Type: typ, Message: message, Timestamp: now, Count: 1})
	if len(r.history) > historyLimit {
		r.history = r.history[len(r.history)-historyLimit:]
	}
}

// Recent returns a copy of the recorded history, oldest first.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.history))
	copy(out, r.history)
	return out
}
