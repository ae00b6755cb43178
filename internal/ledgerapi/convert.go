package ledgerapi

import (
	"time"

	"github.com/cuemby/ledgersync/pkg/types"
)

func valueFromWire(v wireValue) types.Value {
	out := types.Value{Raw: v.Raw}
	switch v.Kind {
	case "contract_id":
		out.Kind = types.ValueKindContractID
		out.ContractID = v.ContractID
	case "list":
		out.Kind = types.ValueKindList
		out.Elements = make([]types.Value, len(v.Elements))
		for i, e := range v.Elements {
			out.Elements[i] = valueFromWire(e)
		}
	default:
		out.Kind = types.ValueKindOpaque
	}
	return out
}

func createdEventFromWire(w wireCreatedEvent) *types.CreatedEvent {
	createdAt, _ := time.Parse(time.RFC3339, w.CreatedAt)
	return &types.CreatedEvent{
		ContractID: w.ContractID,
		TemplateID: types.TemplateID{
			PackageID:  w.TemplateID.PackageID,
			ModuleName: w.TemplateID.ModuleName,
			EntityName: w.TemplateID.EntityName,
		},
		Signatories:      w.Signatories,
		Offset:           w.Offset,
		NodeID:           w.NodeID,
		CreatedAt:        createdAt,
		CreateArguments:  valueFromWire(w.CreateArguments),
		CreatedEventBlob: w.CreatedEventBlob,
	}
}

func exercisedEventFromWire(w wireExercisedEvent) *types.ExercisedEvent {
	return &types.ExercisedEvent{
		ContractID:           w.ContractID,
		Choice:               w.Choice,
		ActingParties:        w.ActingParties,
		Offset:               w.Offset,
		NodeID:               w.NodeID,
		LastDescendantNodeID: w.LastDescendantNodeID,
		Consuming:            w.Consuming,
		ChoiceArgument:       valueFromWire(w.ChoiceArgument),
		ExerciseResult:       valueFromWire(w.ExerciseResult),
	}
}

func updateFromWire(w wireUpdate) types.Update {
	out := types.Update{
		Kind:   types.UpdateKind(w.Kind),
		Offset: w.Offset,
	}
	if w.Kind != "transaction" || w.Transaction == nil {
		return out
	}

	tx := w.Transaction
	effectiveAt, _ := time.Parse(time.RFC3339, tx.EffectiveAt)
	recordTime, _ := time.Parse(time.RFC3339, tx.RecordTime)

	events := make([]types.Event, 0, len(tx.Events))
	for _, we := range tx.Events {
		switch {
		case we.Created != nil:
			events = append(events, types.Event{Kind: types.EventKindCreated, Created: createdEventFromWire(*we.Created)})
		case we.Exercised != nil:
			events = append(events, types.Event{Kind: types.EventKindExercised, Exercised: exercisedEventFromWire(*we.Exercised)})
		}
	}

	out.Transaction = &types.Transaction{
		Offset:         tx.Offset,
		UpdateID:       tx.UpdateID,
		CommandID:      tx.CommandID,
		WorkflowID:     tx.WorkflowID,
		SynchronizerID: tx.SynchronizerID,
		EffectiveAt:    effectiveAt,
		RecordTime:     recordTime,
		TraceParent:    tx.TraceParent,
		TraceState:     tx.TraceState,
		Events:         events,
	}
	return out
}

func eventFormatForParties(parties []string, includeBlob bool) eventFormat {
	byParty := make(map[string]filters, len(parties))
	for _, p := range parties {
		byParty[p] = filters{
			Cumulative: []cumulativeFilter{
				{IdentifierFilter: wildcardFilter{IncludeCreatedEventBlob: includeBlob}},
			},
		}
	}
	return eventFormat{FiltersByParty: byParty, Verbose: true}
}
