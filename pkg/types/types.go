// Package types defines the ledger-side and graph-side data model shared by
// every component of the synchronizer.
package types

import "time"

// Offset identifies a commit position in the ledger. Monotonically
// increasing; the ordering key for all updates.
type Offset = int64

// UpdateKind tags the variant carried by an Update.
type UpdateKind string

const (
	UpdateKindTransaction         UpdateKind = "transaction"
	UpdateKindReassignment        UpdateKind = "reassignment"
	UpdateKindOffsetCheckpoint    UpdateKind = "offset_checkpoint"
	UpdateKindTopologyTransaction UpdateKind = "topology_transaction"
)

// Update is a tagged union over the four update shapes the ledger's update
// stream may deliver. Only Transaction carries projectable content; the
// others are recognized so the projection function can no-op on them
// exhaustively rather than by omission.
type Update struct {
	Kind        UpdateKind
	Offset      Offset
	Transaction *Transaction
}

// Transaction is a committed ledger transaction: an ordered sequence of
// events plus transaction-level metadata.
type Transaction struct {
	Offset         Offset
	UpdateID       string
	CommandID      string
	WorkflowID     string
	SynchronizerID string
	EffectiveAt    time.Time
	RecordTime     time.Time
	TraceParent    string
	TraceState     string
	Events         []Event
}

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventKindCreated   EventKind = "created"
	EventKindExercised EventKind = "exercised"
)

// Event is a tagged union over Created and Exercised ledger events. Exactly
// one of Created/Exercised is non-nil, selected by Kind.
type Event struct {
	Kind      EventKind
	Created   *CreatedEvent
	Exercised *ExercisedEvent
}

// NodeID returns the node_id common to both event variants.
func (e Event) NodeID() int32 {
	if e.Kind == EventKindCreated {
		return e.Created.NodeID
	}
	return e.Exercised.NodeID
}

// LastDescendantNodeID returns the subtree bound used by the ancestor-stack
// algorithm. Created events are leaves: their last descendant is themselves.
func (e Event) LastDescendantNodeID() int32 {
	if e.Kind == EventKindCreated {
		return e.Created.NodeID
	}
	return e.Exercised.LastDescendantNodeID
}

// TemplateID identifies a Daml-style template by package, module and entity.
type TemplateID struct {
	PackageID  string
	ModuleName string
	EntityName string
}

// CreatedEvent records a new contract instance.
type CreatedEvent struct {
	ContractID       string
	TemplateID       TemplateID
	Signatories      []string
	Offset           Offset
	NodeID           int32
	CreatedAt        time.Time
	CreateArguments  Value
	CreatedEventBlob []byte
}

// ExercisedEvent records the invocation of a choice on a contract.
type ExercisedEvent struct {
	ContractID           string
	Choice               string
	ActingParties        []string
	Offset               Offset
	NodeID               int32
	LastDescendantNodeID int32
	Consuming            bool
	ChoiceArgument       Value
	ExerciseResult       Value
}

// ValueKind tags the recursive ledger value variants relevant to projection.
// The ledger's real value algebra has many more shapes (records, variants,
// numerics, text, ...); only the ones the core inspects structurally
// (ContractId leaves and List recursion, per the contract-id extraction
// algorithm) are modeled as distinct kinds. Everything else is carried
// opaquely in Raw for JSON rendering.
type ValueKind string

const (
	ValueKindContractID ValueKind = "contract_id"
	ValueKindList       ValueKind = "list"
	ValueKindOpaque     ValueKind = "opaque"
)

// Value is a recursive ledger value. Raw holds a JSON-serializable
// representation for any kind, used verbatim when rendering
// create_arguments_json / choice_argument_json.
type Value struct {
	Kind       ValueKind
	ContractID string
	Elements   []Value
	Raw        any
}

// ExtractContractIDs walks a Value and returns, in traversal order, every
// ContractId leaf reachable through List recursion. Other shapes are no-ops.
func ExtractContractIDs(v Value) []string {
	var out []string
	extractContractIDs(v, &out)
	return out
}

func extractContractIDs(v Value, out *[]string) {
	switch v.Kind {
	case ValueKindContractID:
		*out = append(*out, v.ContractID)
	case ValueKindList:
		for _, elem := range v.Elements {
			extractContractIDs(elem, out)
		}
	}
}
