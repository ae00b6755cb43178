// Package progress implements the Progress Reporter: a background loop
// that periodically samples the graph's max offset and the ledger's
// current end, logging throughput and estimated time to catch up. It never
// terminates the supervisor on failure, grounded on the original sync
// engine's progress task in ledger-explorer/src/sync.rs.
package progress

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/ledgersync/pkg/log"
)

// DefaultInterval is the sampling interval named by the component design.
const DefaultInterval = 5 * time.Minute

// GraphOffsetSource is the subset of the graph store the reporter samples.
type GraphOffsetSource interface {
	MaxOffset(ctx context.Context) (*int64, error)
}

// LedgerEndSource is the subset of the ledger client the reporter samples.
type LedgerEndSource interface {
	GetLedgerEnd(ctx context.Context, token string) (int64, error)
}

// TokenSource supplies the bearer token for ledger end queries.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

type sample struct {
	offset int64
	at     time.Time
}

// Reporter periodically logs sync throughput and ETA.
type Reporter struct {
	Graph    GraphOffsetSource
	Ledger   LedgerEndSource
	Token    TokenSource
	Interval time.Duration

	previous *sample
}

// Run blocks, sampling on Interval until ctx is canceled. Sampling or
// logging failures are logged and skipped; they never stop the loop.
func (r *Reporter) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := log.WithComponent("progress")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sampleOnce(ctx, logger)
		}
	}
}

func (r *Reporter) sampleOnce(ctx context.Context, logger zerolog.Logger) {
	current, err := r.Graph.MaxOffset(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("progress sample: graph max-offset query failed")
		return
	}
	if current == nil {
		logger.Debug().Msg("progress sample: graph empty, nothing to report yet")
		return
	}

	tok, err := r.Token.GetToken(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("progress sample: token fetch failed")
		return
	}
	ledgerEnd, err := r.Ledger.GetLedgerEnd(ctx, tok)
	if err != nil {
		logger.Warn().Err(err).Msg("progress sample: ledger end query failed")
		return
	}

	now := time.Now()
	event := logger.Info().
		Int64("current_offset", *current).
		Int64("ledger_end", ledgerEnd)

	if r.previous != nil {
		elapsed := now.Sub(r.previous.at).Seconds()
		if elapsed > 0 {
			rate := float64(*current-r.previous.offset) / elapsed
			event = event.Float64("offsets_per_sec", rate)
			if rate > 0 {
				remaining := ledgerEnd - *current
				etaHours := float64(remaining) / rate / 3600
				event = event.Float64("eta_hours", etaHours)
			}
		}
	}
	event.Msg("sync progress")

	r.previous = &sample{offset: *current, at: now}
}
