package projection

import "sort"

// structureMarker is the (offset, node_id, last_descendant_node_id) triple
// used to recover the event tree without building pointer graphs.
type structureMarker struct {
	offset               int64
	nodeID               int32
	lastDescendantNodeID int32
}

// structureEdge is an immediate parent/child pair discovered by
// extractEdges, as (offset, parent_node_id, child_node_id).
type structureEdge struct {
	offset   int64
	parentID int32
	childID  int32
}

// extractEdges recovers the immediate-parent relation from a flat list of
// structure markers. It sorts by node_id ascending and walks a monotonic
// stack of open ancestors: before processing marker m, pop any stack top
// whose last_descendant_node_id is less than m.nodeID; if the stack is
// still non-empty, its top is m's parent. This is a single pass; the
// traversal never revisits a popped marker, so plain slices suffice.
func extractEdges(markers []structureMarker) []structureEdge {
	sorted := make([]structureMarker, len(markers))
	copy(sorted, markers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].nodeID < sorted[j].nodeID })

	var stack []structureMarker
	var edges []structureEdge

	for _, m := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].lastDescendantNodeID < m.nodeID {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			edges = append(edges, structureEdge{offset: m.offset, parentID: parent.nodeID, childID: m.nodeID})
		}
		stack = append(stack, m)
	}

	return edges
}
