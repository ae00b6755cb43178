// Package projection implements the Projection Function: a pure,
// side-effect-free conversion from one ledger Update into an ordered list
// of graph mutation Statements. Grounded on the original sync engine's
// cypher.rs, generalized to also emit Transaction nodes, ACTION edges and
// Party/REQUESTED edges per the full spec (the original prototype never
// modeled those).
package projection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/ledgersync/internal/graphstore"
	"github.com/cuemby/ledgersync/pkg/types"
)

// Project converts a single Update into its ordered mutation statements.
// Non-Transaction variants yield an empty list; a Transaction with no
// events yields only its Transaction node statement. The function has no side effects, no clock access, and no
// randomness: identical input always yields an identical statement
// sequence.
func Project(u types.Update) []graphstore.Statement {
	if u.Kind != types.UpdateKindTransaction || u.Transaction == nil {
		return nil
	}
	tx := u.Transaction
	if len(tx.Events) == 0 {
		return []graphstore.Statement{transactionStatement(tx)}
	}

	var stmts []graphstore.Statement
	stmts = append(stmts, transactionStatement(tx))

	createdRows, exercisedRows := splitEvents(tx)
	if len(createdRows) > 0 {
		stmts = append(stmts, createdBatchStatement(createdRows))
	}
	if len(exercisedRows) > 0 {
		stmts = append(stmts, exercisedBatchStatement(exercisedRows))
	}

	markers := make([]structureMarker, 0, len(tx.Events))
	for _, e := range tx.Events {
		markers = append(markers, structureMarker{
			offset:               tx.Offset,
			nodeID:               e.NodeID(),
			lastDescendantNodeID: e.LastDescendantNodeID(),
		})
	}
	edges := extractEdges(markers)
	if len(edges) > 0 {
		stmts = append(stmts, consequenceBatchStatement(edges))
	}

	targets, consumes := targetAndConsumesRows(tx)
	if len(targets) > 0 {
		stmts = append(stmts, targetBatchStatement(targets))
	}
	if len(consumes) > 0 {
		stmts = append(stmts, consumesBatchStatement(consumes))
	}

	childNodeIDs := make(map[int32]bool, len(edges))
	for _, e := range edges {
		childNodeIDs[e.childID] = true
	}

	rootCreated, rootExercised := rootEventRows(tx, childNodeIDs)
	if len(rootCreated) > 0 {
		stmts = append(stmts, actionBatchStatement(rootCreated, "Created"))
	}
	if len(rootExercised) > 0 {
		stmts = append(stmts, actionBatchStatement(rootExercised, "Exercised"))
	}

	parties := requestingParties(tx, childNodeIDs)
	if len(parties) > 0 {
		stmts = append(stmts, partyMergeStatement(parties))
		stmts = append(stmts, requestedBatchStatement(tx.Offset, parties))
	}

	return stmts
}

func transactionStatement(tx *types.Transaction) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `CREATE (t:Transaction {offset: $offset, update_id: $update_id, command_id: $command_id,
			workflow_id: $workflow_id, synchronizer_id: $synchronizer_id, effective_at: $effective_at,
			record_time: $record_time, traceparent: $traceparent, tracestate: $tracestate})`,
		Params: map[string]any{
			"offset":          tx.Offset,
			"update_id":       tx.UpdateID,
			"command_id":      tx.CommandID,
			"workflow_id":     tx.WorkflowID,
			"synchronizer_id": tx.SynchronizerID,
			"effective_at":    formatTime(tx.EffectiveAt),
			"record_time":     formatTime(tx.RecordTime),
			"traceparent":     tx.TraceParent,
			"tracestate":      tx.TraceState,
		},
	}
}

func splitEvents(tx *types.Transaction) (created, exercised []map[string]any) {
	for _, e := range tx.Events {
		switch e.Kind {
		case types.EventKindCreated:
			created = append(created, createdRow(e.Created, tx.Offset, false))
		case types.EventKindExercised:
			exercised = append(exercised, exercisedRow(e.Exercised, tx.EffectiveAt))
		}
	}
	return
}

// createdRow builds the UNWIND row for a Created event. fromACS switches
// the label suffix to "@ACS" and sets the from_acs flag; offset and
// node_id are taken from the arguments as given.
func createdRow(c *types.CreatedEvent, offset int64, fromACS bool) map[string]any {
	label := fmt.Sprintf("%s@%d", c.TemplateID.EntityName, offset)
	if fromACS {
		label = fmt.Sprintf("%s@ACS", c.TemplateID.EntityName)
	}
	return map[string]any{
		"contract_id":           c.ContractID,
		"template_name":         fmt.Sprintf("%s.%s", c.TemplateID.ModuleName, c.TemplateID.EntityName),
		"label":                 label,
		"signatories":           quotedCommaList(c.Signatories),
		"offset":                offset,
		"node_id":               c.NodeID,
		"created_at":            formatTime(c.CreatedAt),
		"create_arguments":      stringifyValue(c.CreateArguments),
		"create_arguments_json": jsonRenderValue(c.CreateArguments),
		"from_acs":              fromACS,
	}
}

func exercisedRow(e *types.ExercisedEvent, txEffectiveAt time.Time) map[string]any {
	label := fmt.Sprintf("%s@%d", e.Choice, e.Offset)
	return map[string]any{
		"label":                    label,
		"choice_name":              e.Choice,
		"target_contract_id":       e.ContractID,
		"acting_parties":           quotedCommaList(e.ActingParties),
		"offset":                   e.Offset,
		"node_id":                  e.NodeID,
		"consuming":                e.Consuming,
		"result_contract_ids":      types.ExtractContractIDs(e.ExerciseResult),
		"last_descendant_node_id":  e.LastDescendantNodeID,
		"transaction_effective_at": formatTime(txEffectiveAt),
		"choice_argument":          stringifyValue(e.ChoiceArgument),
		"choice_argument_json":     jsonRenderValue(e.ChoiceArgument),
	}
}

func createdBatchStatement(rows []map[string]any) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $rows AS row
			CREATE (c:Created {contract_id: row.contract_id, template_name: row.template_name,
				label: row.label, signatories: row.signatories, offset: row.offset, node_id: row.node_id,
				created_at: row.created_at, create_arguments: row.create_arguments,
				create_arguments_json: row.create_arguments_json, from_acs: row.from_acs})`,
		Params: map[string]any{"rows": rows},
	}
}

func exercisedBatchStatement(rows []map[string]any) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $rows AS row
			CREATE (e:Exercised {label: row.label, choice_name: row.choice_name,
				target_contract_id: row.target_contract_id, acting_parties: row.acting_parties,
				offset: row.offset, node_id: row.node_id, consuming: row.consuming,
				result_contract_ids: row.result_contract_ids, last_descendant_node_id: row.last_descendant_node_id,
				transaction_effective_at: row.transaction_effective_at, choice_argument: row.choice_argument,
				choice_argument_json: row.choice_argument_json})`,
		Params: map[string]any{"rows": rows},
	}
}

func consequenceBatchStatement(edges []structureEdge) graphstore.Statement {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"offset": e.offset, "parent_node_id": e.parentID, "child_node_id": e.childID}
	}
	return graphstore.Statement{
		Cypher: `UNWIND $edges AS edge
			MATCH (parent {offset: edge.offset, node_id: edge.parent_node_id}), (child {offset: edge.offset, node_id: edge.child_node_id})
			CREATE (parent)-[:CONSEQUENCE]->(child)`,
		Params: map[string]any{"edges": rows},
	}
}

func targetAndConsumesRows(tx *types.Transaction) (targets, consumes []map[string]any) {
	for _, e := range tx.Events {
		if e.Kind != types.EventKindExercised {
			continue
		}
		row := map[string]any{
			"offset":             tx.Offset,
			"node_id":            e.Exercised.NodeID,
			"target_contract_id": e.Exercised.ContractID,
		}
		targets = append(targets, row)
		if e.Exercised.Consuming {
			consumes = append(consumes, row)
		}
	}
	return
}

func targetBatchStatement(rows []map[string]any) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $targets AS t
			MATCH (e:Exercised {offset: t.offset, node_id: t.node_id}), (c:Created {contract_id: t.target_contract_id})
			CREATE (e)-[:TARGET]->(c)`,
		Params: map[string]any{"targets": rows},
	}
}

func consumesBatchStatement(rows []map[string]any) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $targets AS t
			MATCH (e:Exercised {offset: t.offset, node_id: t.node_id}), (c:Created {contract_id: t.target_contract_id})
			CREATE (e)-[:CONSUMES]->(c)`,
		Params: map[string]any{"targets": rows},
	}
}

func rootEventRows(tx *types.Transaction, childNodeIDs map[int32]bool) (created, exercised []map[string]any) {
	for _, e := range tx.Events {
		if childNodeIDs[e.NodeID()] {
			continue
		}
		row := map[string]any{"offset": tx.Offset, "node_id": e.NodeID()}
		if e.Kind == types.EventKindCreated {
			created = append(created, row)
		} else {
			exercised = append(exercised, row)
		}
	}
	return
}

func actionBatchStatement(rows []map[string]any, label string) graphstore.Statement {
	return graphstore.Statement{
		Cypher: fmt.Sprintf(`UNWIND $roots AS r
			MATCH (t:Transaction {offset: r.offset}), (n:%s {offset: r.offset, node_id: r.node_id})
			CREATE (t)-[:ACTION]->(n)`, label),
		Params: map[string]any{"roots": rows},
	}
}

func requestingParties(tx *types.Transaction, childNodeIDs map[int32]bool) []string {
	seen := map[string]bool{}
	var parties []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			parties = append(parties, p)
		}
	}
	for _, e := range tx.Events {
		if childNodeIDs[e.NodeID()] {
			continue
		}
		switch e.Kind {
		case types.EventKindCreated:
			for _, p := range e.Created.Signatories {
				add(p)
			}
		case types.EventKindExercised:
			for _, p := range e.Exercised.ActingParties {
				add(p)
			}
		}
	}
	return parties
}

func partyMergeStatement(parties []string) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $parties AS p MERGE (party:Party {party_id: p})`,
		Params: map[string]any{"parties": parties},
	}
}

func requestedBatchStatement(offset int64, parties []string) graphstore.Statement {
	return graphstore.Statement{
		Cypher: `UNWIND $parties AS p
			MATCH (party:Party {party_id: p}), (t:Transaction {offset: $offset})
			CREATE (party)-[:REQUESTED]->(t)`,
		Params: map[string]any{"parties": parties, "offset": offset},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func quotedCommaList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func stringifyValue(v types.Value) string {
	b, err := json.Marshal(v.Raw)
	if err != nil {
		return ""
	}
	return string(b)
}

func jsonRenderValue(v types.Value) string {
	b, err := json.MarshalIndent(v.Raw, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
