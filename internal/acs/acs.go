// Package acs implements the ACS Loader: on first run, or after a fresh
// restart, streams the contracts active at a chosen offset and inserts
// them into the graph as snapshot-sourced Created nodes.
package acs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/ledgersync/internal/graphstore"
	"github.com/cuemby/ledgersync/internal/ledgerapi"
	"github.com/cuemby/ledgersync/pkg/log"
	"github.com/cuemby/ledgersync/pkg/metrics"
	"github.com/cuemby/ledgersync/pkg/types"
)

// batchSize matches the ~500 statement batches named in the component
// design: large enough to amortize transaction overhead, small enough to
// keep a single failed batch from discarding most of a snapshot.
const batchSize = 500

// Loaded reports whether the graph already holds an ACS snapshot,
// delegating to the store's from_acs flag check.
func Loaded(ctx context.Context, store graphstore.GraphStore) (bool, error) {
	loaded, err := store.IsACSLoaded(ctx)
	if err != nil {
		return false, fmt.Errorf("check acs loaded: %w", err)
	}
	return loaded, nil
}

// Load streams the active contract set at activeAtOffset and projects each
// element as a from_acs Created node, batched writes of up to batchSize
// statements at a time. A stream error after at least one element has been
// committed is treated as a partial load: the snapshot is still marked
// loaded (via the from_acs flag already present on committed nodes) and
// the supervisor proceeds to streaming rather than retrying the whole ACS
// load, per the partial-load-is-still-loaded design note.
func Load(ctx context.Context, client ledgerapi.Client, store graphstore.GraphStore, token string, parties []string, activeAtOffset int64) error {
	logger := log.WithComponent("acs")
	logger.Info().Int64("active_at_offset", activeAtOffset).Strs("parties", parties).Msg("loading active contract set")

	elements, errCh := client.StreamActiveContracts(ctx, token, parties, activeAtOffset)

	var batch []graphstore.Statement
	var count int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.CommitBatch(ctx, batch); err != nil {
			return fmt.Errorf("commit acs batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for elem := range elements {
		if elem.Created == nil {
			continue
		}
		batch = append(batch, createdSnapshotStatement(elem.Created))
		count++
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	metrics.ACSContractsLoadedTotal.Add(float64(count))

	select {
	case err, ok := <-errCh:
		if ok && err != nil && !errors.Is(err, context.Canceled) {
			if count > 0 {
				logger.Warn().Err(err).Int("contracts_loaded", count).
					Msg("acs stream ended early, snapshot considered loaded with partial coverage")
				return nil
			}
			return fmt.Errorf("stream active contracts: %w", err)
		}
	default:
	}

	logger.Info().Int("contracts_loaded", count).Msg("active contract set loaded")
	return nil
}

func createdSnapshotStatement(c *types.CreatedEvent) graphstore.Statement {
	label := fmt.Sprintf("%s@ACS", c.TemplateID.EntityName)
	return graphstore.Statement{
		Cypher: `MERGE (c:Created {contract_id: $contract_id})
			ON CREATE SET c.template_name = $template_name, c.label = $label, c.signatories = $signatories,
				c.offset = -1, c.node_id = 0, c.created_at = $created_at,
				c.create_arguments = $create_arguments, c.create_arguments_json = $create_arguments_json,
				c.from_acs = true`,
		Params: map[string]any{
			"contract_id":           c.ContractID,
			"template_name":         fmt.Sprintf("%s.%s", c.TemplateID.ModuleName, c.TemplateID.EntityName),
			"label":                 label,
			"signatories":           quotedCommaList(c.Signatories),
			"created_at":            formatCreatedAt(c),
			"create_arguments":      stringifyRaw(c.CreateArguments.Raw),
			"create_arguments_json": jsonRaw(c.CreateArguments.Raw),
		},
	}
}
