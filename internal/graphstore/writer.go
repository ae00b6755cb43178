package graphstore

import (
	"context"
	"time"

	"github.com/cuemby/ledgersync/pkg/log"
	"github.com/cuemby/ledgersync/pkg/metrics"
)

// WriterConfig tunes the Batched Graph Writer's commit triggers.
type WriterConfig struct {
	BatchSize   int
	FlushEvery  time.Duration
	IdleTimeout time.Duration
}

// Writer accumulates Statements produced by the Projection Function and
// commits them to a GraphStore when either the batch reaches BatchSize
// updates or FlushEvery has elapsed since the oldest uncommitted update,
// whichever comes first. The size trigger counts updates (one Add call per
// update), not statements: a single update projects to several statements,
// so gating on buffer length would flush far earlier than BatchSize
// intends. Writer does no idle-stream detection and does not read
// WriterConfig.IdleTimeout; the supervisor's stream loop runs the idle
// timer and forces the final flush and reconnect.
type Writer struct {
	store          GraphStore
	cfg            WriterConfig
	buffer         []Statement
	updatesInBatch int
	opened         time.Time
}

// NewWriter constructs a Writer over store with the given tuning.
func NewWriter(store GraphStore, cfg WriterConfig) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = time.Second
	}
	return &Writer{store: store, cfg: cfg}
}

// Add appends the statements projected from one update to the pending
// batch, flushing immediately if the batch size threshold is now met. Each
// call to Add counts as exactly one update toward BatchSize, regardless of
// how many statements it carries.
func (w *Writer) Add(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	if len(w.buffer) == 0 {
		w.opened = time.Now()
	}
	w.buffer = append(w.buffer, stmts...)
	w.updatesInBatch++
	metrics.BatchStatementsTotal.Add(float64(len(stmts)))

	if w.updatesInBatch >= w.cfg.BatchSize {
		return w.Flush(ctx, "size")
	}
	return nil
}

// TimeoutRemaining returns how long until the time-based flush trigger
// fires for the current open batch, or FlushEvery when no batch is open.
func (w *Writer) TimeoutRemaining() time.Duration {
	if len(w.buffer) == 0 {
		return w.cfg.FlushEvery
	}
	remaining := w.cfg.FlushEvery - time.Since(w.opened)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FlushIfDue flushes the pending batch when the time-based trigger has
// elapsed. Intended to be called on a ticker derived from TimeoutRemaining.
func (w *Writer) FlushIfDue(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}
	if time.Since(w.opened) < w.cfg.FlushEvery {
		return nil
	}
	return w.Flush(ctx, "time")
}

// Flush commits whatever is pending, regardless of trigger, and resets the
// buffer. trigger is recorded on the commit-count metric for observability.
func (w *Writer) Flush(ctx context.Context, trigger string) error {
	if len(w.buffer) == 0 {
		return nil
	}
	batch := w.buffer
	w.buffer = nil
	w.updatesInBatch = 0

	timer := metrics.NewTimer()
	err := w.store.CommitBatch(ctx, batch)
	timer.ObserveDuration(metrics.BatchCommitDuration)
	if err != nil {
		log.WithComponent("graphstore").Error().Err(err).Int("statements", len(batch)).Msg("batch commit failed")
		return err
	}

	metrics.BatchCommitsTotal.WithLabelValues(trigger).Inc()
	log.WithComponent("graphstore").Debug().
		Int("statements", len(batch)).
		Str("trigger", trigger).
		Dur("elapsed", timer.Duration()).
		Msg("batch committed")
	return nil
}

// Pending reports how many statements are currently buffered.
func (w *Writer) Pending() int {
	return len(w.buffer)
}
