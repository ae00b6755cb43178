// Package offset implements the Offset Oracle: the decision tree that picks
// begin_exclusive for each stream-open attempt.
package offset

import (
	"context"

	"github.com/cuemby/ledgersync/pkg/log"
)

// GraphOffsetSource is the subset of the graph store the oracle consults.
type GraphOffsetSource interface {
	// MaxOffset returns the maximum offset over non-ACS nodes, or nil if
	// the graph is empty.
	MaxOffset(ctx context.Context) (*int64, error)
}

// LedgerOffsetSource is the subset of the ledger client the oracle consults.
type LedgerOffsetSource interface {
	GetLedgerEnd(ctx context.Context, token string) (int64, error)
	GetPruningOffset(ctx context.Context, token string) (*int64, error)
}

// Oracle decides begin_exclusive per spec's five-step decision tree.
type Oracle struct {
	Graph  GraphOffsetSource
	Ledger LedgerOffsetSource

	// StartingOffset is the operator-configured fallback (step 3).
	StartingOffset *int64

	// freshAnchor caches the ledger end chosen on a fresh-start run so
	// retries of the same fresh session reuse the same anchor.
	freshAnchor *int64
}

// Resolve returns begin_exclusive for the next stream-open attempt.
// fresh selects fresh mode (step 1); token authorizes the ledger_end call.
func (o *Oracle) Resolve(ctx context.Context, token string, fresh bool) (int64, error) {
	logger := log.WithComponent("offset")

	if fresh {
		if o.freshAnchor != nil {
			return *o.freshAnchor, nil
		}
		end, err := o.Ledger.GetLedgerEnd(ctx, token)
		if err != nil {
			return 0, err
		}
		o.freshAnchor = &end
		logger.Info().Int64("offset", end).Msg("fresh-start anchor set to ledger end")
		return end, nil
	}

	if max, err := o.Graph.MaxOffset(ctx); err != nil {
		logger.Warn().Err(err).Msg("graph max-offset query failed, falling through")
	} else if max != nil {
		return *max, nil
	}

	if o.StartingOffset != nil {
		return *o.StartingOffset, nil
	}

	pruned, err := o.Ledger.GetPruningOffset(ctx, token)
	if err != nil {
		logger.Warn().Err(err).Msg("pruning-offset query failed, falling back to 0")
		return 0, nil
	}
	if pruned != nil {
		return *pruned, nil
	}

	return 0, nil
}

// FreshAnchor returns the cached fresh-start anchor, if one has been set.
func (o *Oracle) FreshAnchor() *int64 {
	return o.freshAnchor
}
