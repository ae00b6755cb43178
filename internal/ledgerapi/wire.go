package ledgerapi

// This file defines the wire shapes exchanged with the ledger's gRPC
// surface. Real Ledger API bindings are generated by protoc from .proto
// descriptors that are not present in this environment and cannot be
// compiled here; see client.go for the codec substitution this implies.
// Field names follow the Ledger API v2 JSON mapping convention
// (snake_case), so a future swap to generated bindings is a mechanical
// rename rather than a redesign.

// ledgerEndRequest/Response back StateService.GetLedgerEnd.
type ledgerEndRequest struct{}

type ledgerEndResponse struct {
	Offset int64 `json:"offset"`
}

// prunedOffsetsRequest/Response back StateService.GetLatestPrunedOffsets.
type prunedOffsetsRequest struct{}

type prunedOffsetsResponse struct {
	ParticipantPrunedUpToInclusive *int64 `json:"participant_pruned_up_to_inclusive"`
}

// wildcardFilter requests all visible templates for a party, optionally
// including the created-event blob.
type wildcardFilter struct {
	IncludeCreatedEventBlob bool `json:"include_created_event_blob"`
}

type cumulativeFilter struct {
	IdentifierFilter wildcardFilter `json:"identifier_filter"`
}

type filters struct {
	Cumulative []cumulativeFilter `json:"cumulative"`
}

type eventFormat struct {
	FiltersByParty map[string]filters `json:"filters_by_party"`
	Verbose        bool               `json:"verbose"`
}

// activeContractsRequest backs StateService.GetActiveContracts.
type activeContractsRequest struct {
	ActiveAtOffset int64       `json:"active_at_offset"`
	EventFormat    eventFormat `json:"event_format"`
}

type wireCreatedEvent struct {
	ContractID       string         `json:"contract_id"`
	TemplateID       wireTemplateID `json:"template_id"`
	Signatories      []string       `json:"signatories"`
	Offset           int64          `json:"offset"`
	NodeID           int32          `json:"node_id"`
	CreatedAt        string         `json:"created_at"` // RFC3339
	CreateArguments  wireValue      `json:"create_arguments"`
	CreatedEventBlob []byte         `json:"created_event_blob,omitempty"`
}

type wireTemplateID struct {
	PackageID  string `json:"package_id"`
	ModuleName string `json:"module_name"`
	EntityName string `json:"entity_name"`
}

// wireValue mirrors the recursive ledger value shape, restricted to the
// variants the core inspects structurally (see pkg/types.Value).
type wireValue struct {
	Kind       string      `json:"kind"` // "contract_id" | "list" | "opaque"
	ContractID string      `json:"contract_id,omitempty"`
	Elements   []wireValue `json:"elements,omitempty"`
	Raw        any         `json:"raw,omitempty"`
}

// activeContractsResponseElement is exactly one of three shapes, each
// exposing a Created event.
type activeContractsResponseElement struct {
	ActiveContract       *struct {
		CreatedEvent   wireCreatedEvent `json:"created_event"`
		SynchronizerID string           `json:"synchronizer_id"`
	} `json:"active_contract,omitempty"`
	IncompleteUnassigned *struct {
		CreatedEvent    wireCreatedEvent `json:"created_event"`
		UnassignedEvent struct {
			Source string `json:"source"`
		} `json:"unassigned_event"`
	} `json:"incomplete_unassigned,omitempty"`
	IncompleteAssigned *struct {
		AssignedEvent struct {
			CreatedEvent wireCreatedEvent `json:"created_event"`
			Target       string           `json:"target"`
		} `json:"assigned_event"`
	} `json:"incomplete_assigned,omitempty"`
}

// createdEvent returns the Created event common to all three shapes, or
// false if the element is malformed (no shape set).
func (e activeContractsResponseElement) createdEvent() (wireCreatedEvent, bool) {
	switch {
	case e.ActiveContract != nil:
		return e.ActiveContract.CreatedEvent, true
	case e.IncompleteUnassigned != nil:
		return e.IncompleteUnassigned.CreatedEvent, true
	case e.IncompleteAssigned != nil:
		return e.IncompleteAssigned.AssignedEvent.CreatedEvent, true
	default:
		return wireCreatedEvent{}, false
	}
}

// updatesRequest backs UpdateService.GetUpdates.
type updatesRequest struct {
	BeginExclusive int64          `json:"begin_exclusive"`
	EndInclusive   *int64         `json:"end_inclusive,omitempty"`
	UpdateFormat   updateFormat   `json:"update_format"`
}

type updateFormat struct {
	IncludeTransactions includeTransactions `json:"include_transactions"`
}

type includeTransactions struct {
	EventFormat      eventFormat `json:"event_format"`
	TransactionShape string      `json:"transaction_shape"` // "LEDGER_EFFECTS"
}

type wireExercisedEvent struct {
	ContractID           string    `json:"contract_id"`
	Choice               string    `json:"choice"`
	ActingParties        []string  `json:"acting_parties"`
	Offset               int64     `json:"offset"`
	NodeID               int32     `json:"node_id"`
	LastDescendantNodeID int32     `json:"last_descendant_node_id"`
	Consuming            bool      `json:"consuming"`
	ChoiceArgument       wireValue `json:"choice_argument"`
	ExerciseResult       wireValue `json:"exercise_result"`
}

type wireEvent struct {
	Created   *wireCreatedEvent   `json:"created,omitempty"`
	Exercised *wireExercisedEvent `json:"exercised,omitempty"`
}

type wireTransaction struct {
	Offset         int64       `json:"offset"`
	UpdateID       string      `json:"update_id"`
	CommandID      string      `json:"command_id"`
	WorkflowID     string      `json:"workflow_id"`
	SynchronizerID string      `json:"synchronizer_id"`
	EffectiveAt    string      `json:"effective_at"`
	RecordTime     string      `json:"record_time"`
	TraceParent    string      `json:"trace_parent,omitempty"`
	TraceState     string      `json:"trace_state,omitempty"`
	Events         []wireEvent `json:"events"`
}

// wireUpdate is a tagged union over the four update shapes; only
// Transaction carries a payload the core inspects.
type wireUpdate struct {
	Kind        string           `json:"kind"`
	Offset      int64            `json:"offset"`
	Transaction *wireTransaction `json:"transaction,omitempty"`
}
