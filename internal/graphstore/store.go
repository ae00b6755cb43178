// Package graphstore is the graph's storage boundary: the GraphStore
// interface the rest of the core depends on, and a neo4j-go-driver-backed
// implementation plus the Batched Graph Writer that accumulates Projection
// output and commits it in count/time-triggered batches.
package graphstore

import "context"

// GraphStore is the persistence surface the Offset Oracle, ACS Loader and
// Batched Graph Writer depend on. The graph is the synchronizer's only
// durable state; there is no separate checkpoint store.
type GraphStore interface {
	// MaxOffset returns the highest offset recorded on any Transaction node,
	// or nil if the graph holds no transactions yet.
	MaxOffset(ctx context.Context) (*int64, error)

	// IsACSLoaded reports whether a Created node tagged from_acs=true exists.
	IsACSLoaded(ctx context.Context) (bool, error)

	// Clear deletes every node and relationship in the graph.
	Clear(ctx context.Context) error

	// EnsureIndexes creates the index set the query patterns above depend
	// on, idempotently.
	EnsureIndexes(ctx context.Context) error

	// CommitBatch executes a sequence of statements in a single write
	// transaction.
	CommitBatch(ctx context.Context, stmts []Statement) error

	Close(ctx context.Context) error
}
