package offset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ledgersync/pkg/log"
)

func init() {
	log.Init(log.Config{Level: log.InfoLevel})
}

type fakeGraph struct {
	max *int64
	err error
}

func (g fakeGraph) MaxOffset(ctx context.Context) (*int64, error) { return g.max, g.err }

type fakeLedger struct {
	end       int64
	endErr    error
	pruned    *int64
	prunedErr error
}

func (l fakeLedger) GetLedgerEnd(ctx context.Context, token string) (int64, error) {
	return l.end, l.endErr
}

func (l fakeLedger) GetPruningOffset(ctx context.Context, token string) (*int64, error) {
	return l.pruned, l.prunedErr
}

func ptr(v int64) *int64 { return &v }

func TestResolveFreshAnchorsToLedgerEndOnce(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{}, Ledger: fakeLedger{end: 500}}

	got, err := o.Resolve(context.Background(), "tok", true)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got)
	require.NotNil(t, o.FreshAnchor())
	assert.Equal(t, int64(500), *o.FreshAnchor())
}

func TestResolveFreshReusesCachedAnchorOnRetry(t *testing.T) {
	ledger := fakeLedger{end: 500}
	o := &Oracle{Graph: fakeGraph{}, Ledger: ledger}

	_, err := o.Resolve(context.Background(), "tok", true)
	require.NoError(t, err)

	o.Ledger = fakeLedger{end: 900} // ledger has moved on, anchor must not
	got, err := o.Resolve(context.Background(), "tok", true)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got)
}

func TestResolveFreshPropagatesLedgerEndError(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{}, Ledger: fakeLedger{endErr: errors.New("unavailable")}}

	_, err := o.Resolve(context.Background(), "tok", true)
	assert.Error(t, err)
}

func TestResolveUsesGraphMaxOffsetWhenPresent(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{max: ptr(42)}, Ledger: fakeLedger{}}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestResolveFallsThroughToStartingOffsetWhenGraphEmpty(t *testing.T) {
	starting := ptr(7)
	o := &Oracle{Graph: fakeGraph{max: nil}, Ledger: fakeLedger{}, StartingOffset: starting}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestResolveFallsThroughToStartingOffsetOnGraphError(t *testing.T) {
	starting := ptr(7)
	o := &Oracle{Graph: fakeGraph{err: errors.New("neo4j down")}, Ledger: fakeLedger{}, StartingOffset: starting}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestResolveFallsThroughToPruningOffsetWhenNoStartingOffset(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{max: nil}, Ledger: fakeLedger{pruned: ptr(99)}}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got)
}

func TestResolveFallsBackToZeroWhenEverythingEmpty(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{max: nil}, Ledger: fakeLedger{pruned: nil}}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestResolveFallsBackToZeroWhenPruningQueryFails(t *testing.T) {
	o := &Oracle{Graph: fakeGraph{max: nil}, Ledger: fakeLedger{prunedErr: errors.New("unavailable")}}

	got, err := o.Resolve(context.Background(), "tok", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}
