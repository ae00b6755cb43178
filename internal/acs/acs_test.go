package acs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ledgersync/internal/graphstore"
	"github.com/cuemby/ledgersync/internal/ledgerapi"
	"github.com/cuemby/ledgersync/pkg/types"
)

type fakeClient struct {
	elements  []ledgerapi.ActiveContractElement
	streamErr error
}

func (f *fakeClient) GetLedgerEnd(ctx context.Context, token string) (int64, error) { return 0, nil }
func (f *fakeClient) GetPruningOffset(ctx context.Context, token string) (*int64, error) {
	return nil, nil
}
func (f *fakeClient) StreamActiveContracts(ctx context.Context, token string, parties []string, activeAtOffset int64) (<-chan ledgerapi.ActiveContractElement, <-chan error) {
	out := make(chan ledgerapi.ActiveContractElement, len(f.elements))
	errCh := make(chan error, 1)
	for _, e := range f.elements {
		out <- e
	}
	close(out)
	if f.streamErr != nil {
		errCh <- f.streamErr
	}
	close(errCh)
	return out, errCh
}
func (f *fakeClient) StreamUpdates(ctx context.Context, token string, parties []string, beginExclusive int64) (<-chan types.Update, <-chan error) {
	out := make(chan types.Update)
	errCh := make(chan error)
	close(out)
	close(errCh)
	return out, errCh
}
func (f *fakeClient) Close() error { return nil }

type fakeStore struct {
	committed [][]graphstore.Statement
	loaded    bool
}

func (s *fakeStore) MaxOffset(ctx context.Context) (*int64, error) { return nil, nil }
func (s *fakeStore) IsACSLoaded(ctx context.Context) (bool, error) { return s.loaded, nil }
func (s *fakeStore) Clear(ctx context.Context) error               { return nil }
func (s *fakeStore) EnsureIndexes(ctx context.Context) error       { return nil }
func (s *fakeStore) Close(ctx context.Context) error               { return nil }
func (s *fakeStore) CommitBatch(ctx context.Context, stmts []graphstore.Statement) error {
	s.committed = append(s.committed, stmts)
	return nil
}

func contract(id string) ledgerapi.ActiveContractElement {
	return ledgerapi.ActiveContractElement{
		Created: &types.CreatedEvent{
			ContractID:  id,
			TemplateID:  types.TemplateID{ModuleName: "Iou", EntityName: "Iou"},
			Signatories: []string{"Alice"},
		},
	}
}

func TestLoadedDelegatesToStore(t *testing.T) {
	store := &fakeStore{loaded: true}
	loaded, err := Loaded(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, loaded)
}

func TestLoadCommitsAllContracts(t *testing.T) {
	client := &fakeClient{elements: []ledgerapi.ActiveContractElement{contract("c1"), contract("c2")}}
	store := &fakeStore{}

	err := Load(context.Background(), client, store, "token", []string{"Alice"}, 100)
	require.NoError(t, err)

	var total int
	for _, batch := range store.committed {
		total += len(batch)
	}
	assert.Equal(t, 2, total)
}

func TestLoadPartialFailureAfterSomeContractsStillSucceeds(t *testing.T) {
	client := &fakeClient{
		elements:  []ledgerapi.ActiveContractElement{contract("c1")},
		streamErr: errors.New("stream reset"),
	}
	store := &fakeStore{}

	err := Load(context.Background(), client, store, "token", []string{"Alice"}, 100)
	assert.NoError(t, err, "a partial load with at least one committed contract is not a failure")
	assert.Len(t, store.committed, 1)
}

func TestLoadFailureWithNoContractsIsAnError(t *testing.T) {
	client := &fakeClient{streamErr: errors.New("connection refused")}
	store := &fakeStore{}

	err := Load(context.Background(), client, store, "token", []string{"Alice"}, 100)
	assert.Error(t, err)
}
