package graphstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	commits [][]Statement
	err     error
}

func (s *recordingStore) MaxOffset(ctx context.Context) (*int64, error) { return nil, nil }
func (s *recordingStore) IsACSLoaded(ctx context.Context) (bool, error) { return false, nil }
func (s *recordingStore) Clear(ctx context.Context) error               { return nil }
func (s *recordingStore) EnsureIndexes(ctx context.Context) error       { return nil }
func (s *recordingStore) Close(ctx context.Context) error               { return nil }

func (s *recordingStore) CommitBatch(ctx context.Context, stmts []Statement) error {
	if s.err != nil {
		return s.err
	}
	cp := append([]Statement(nil), stmts...)
	s.commits = append(s.commits, cp)
	return nil
}

func TestWriterFlushesImmediatelyOnBatchSize(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{BatchSize: 2, FlushEvery: time.Hour})

	require.NoError(t, w.Add(context.Background(), []Statement{{Cypher: "a"}}))
	assert.Equal(t, 0, len(store.commits))
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.Add(context.Background(), []Statement{{Cypher: "b"}}))
	require.Equal(t, 1, len(store.commits))
	assert.Equal(t, 2, len(store.commits[0]))
	assert.Equal(t, 0, w.Pending())
}

func TestWriterFlushTriggersOnUpdateCountNotStatementCount(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{BatchSize: 3, FlushEvery: time.Hour})

	// Each Add call carries the several statements one projected update
	// yields; the size trigger must count calls, not statements.
	multi := []Statement{{Cypher: "a"}, {Cypher: "b"}, {Cypher: "c"}, {Cypher: "d"}, {Cypher: "e"}}

	require.NoError(t, w.Add(context.Background(), multi))
	assert.Equal(t, 0, len(store.commits), "must not flush after 1 call even though len(buffer) >= BatchSize")

	require.NoError(t, w.Add(context.Background(), multi))
	assert.Equal(t, 0, len(store.commits), "must not flush after 2 calls")

	require.NoError(t, w.Add(context.Background(), multi))
	require.Equal(t, 1, len(store.commits), "must flush on the 3rd call")
	assert.Equal(t, 15, len(store.commits[0]))
	assert.Equal(t, 0, w.Pending())
}

func TestWriterFlushIfDueRespectsElapsedTime(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{BatchSize: 100, FlushEvery: 50 * time.Millisecond})

	require.NoError(t, w.Add(context.Background(), []Statement{{Cypher: "a"}}))
	require.NoError(t, w.FlushIfDue(context.Background()))
	assert.Equal(t, 0, len(store.commits), "flush should not fire before FlushEvery elapses")

	w.opened = time.Now().Add(-time.Hour)
	require.NoError(t, w.FlushIfDue(context.Background()))
	assert.Equal(t, 1, len(store.commits))
}

func TestWriterFlushIfDueNoopWhenEmpty(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{})

	require.NoError(t, w.FlushIfDue(context.Background()))
	assert.Equal(t, 0, len(store.commits))
}

func TestWriterAddIgnoresEmptyStatements(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{BatchSize: 1})

	require.NoError(t, w.Add(context.Background(), nil))
	assert.Equal(t, 0, w.Pending())
}

func TestWriterFlushPropagatesStoreError(t *testing.T) {
	store := &recordingStore{err: errors.New("commit failed")}
	w := NewWriter(store, WriterConfig{BatchSize: 1})

	err := w.Add(context.Background(), []Statement{{Cypher: "a"}})
	assert.Error(t, err)
}

func TestWriterFlushNoopWhenBufferEmpty(t *testing.T) {
	store := &recordingStore{}
	w := NewWriter(store, WriterConfig{})

	require.NoError(t, w.Flush(context.Background(), "final"))
	assert.Equal(t, 0, len(store.commits))
}

func TestTimeoutRemainingDefaultsToFlushEveryWhenNoBatchOpen(t *testing.T) {
	w := NewWriter(&recordingStore{}, WriterConfig{FlushEvery: 30 * time.Second})
	assert.Equal(t, 30*time.Second, w.TimeoutRemaining())
}

func TestTimeoutRemainingCountsDownFromOpenedBatch(t *testing.T) {
	w := NewWriter(&recordingStore{}, WriterConfig{BatchSize: 100, FlushEvery: time.Minute})
	require.NoError(t, w.Add(context.Background(), []Statement{{Cypher: "a"}}))

	w.opened = time.Now().Add(-50 * time.Second)
	assert.LessOrEqual(t, w.TimeoutRemaining(), 10*time.Second)
}

func TestNewWriterAppliesDefaults(t *testing.T) {
	w := NewWriter(&recordingStore{}, WriterConfig{})
	assert.Equal(t, 100, w.cfg.BatchSize)
	assert.Equal(t, time.Second, w.cfg.FlushEvery)
}
