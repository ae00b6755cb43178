package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEdgesFlatSiblings(t *testing.T) {
	markers := []structureMarker{
		{offset: 10, nodeID: 0, lastDescendantNodeID: 0},
		{offset: 10, nodeID: 1, lastDescendantNodeID: 1},
		{offset: 10, nodeID: 2, lastDescendantNodeID: 2},
	}

	edges := extractEdges(markers)
	assert.Empty(t, edges)
}

func TestExtractEdgesNestedExercise(t *testing.T) {
	// node 0 exercises, containing nodes 1 and 2 as direct children
	markers := []structureMarker{
		{offset: 5, nodeID: 0, lastDescendantNodeID: 2},
		{offset: 5, nodeID: 1, lastDescendantNodeID: 1},
		{offset: 5, nodeID: 2, lastDescendantNodeID: 2},
	}

	edges := extractEdges(markers)
	assert.Len(t, edges, 2)
	assert.Contains(t, edges, structureEdge{offset: 5, parentID: 0, childID: 1})
	assert.Contains(t, edges, structureEdge{offset: 5, parentID: 0, childID: 2})
}

func TestExtractEdgesDeeplyNested(t *testing.T) {
	// 0 -> 1 -> 2, each a single-child chain
	markers := []structureMarker{
		{offset: 7, nodeID: 0, lastDescendantNodeID: 2},
		{offset: 7, nodeID: 1, lastDescendantNodeID: 2},
		{offset: 7, nodeID: 2, lastDescendantNodeID: 2},
	}

	edges := extractEdges(markers)
	assert.Len(t, edges, 2)
	assert.Contains(t, edges, structureEdge{offset: 7, parentID: 0, childID: 1})
	assert.Contains(t, edges, structureEdge{offset: 7, parentID: 1, childID: 2})
}

func TestExtractEdgesSiblingSubtreesPopCorrectly(t *testing.T) {
	// 0 -> {1 -> {2}, 3}: node 1's subtree ends at 2, so node 3 must attach
	// back to 0, not to 1.
	markers := []structureMarker{
		{offset: 1, nodeID: 0, lastDescendantNodeID: 3},
		{offset: 1, nodeID: 1, lastDescendantNodeID: 2},
		{offset: 1, nodeID: 2, lastDescendantNodeID: 2},
		{offset: 1, nodeID: 3, lastDescendantNodeID: 3},
	}

	edges := extractEdges(markers)
	assert.Len(t, edges, 3)
	assert.Contains(t, edges, structureEdge{offset: 1, parentID: 0, childID: 1})
	assert.Contains(t, edges, structureEdge{offset: 1, parentID: 1, childID: 2})
	assert.Contains(t, edges, structureEdge{offset: 1, parentID: 0, childID: 3})
}

func TestExtractEdgesUnsortedInput(t *testing.T) {
	markers := []structureMarker{
		{offset: 1, nodeID: 2, lastDescendantNodeID: 2},
		{offset: 1, nodeID: 0, lastDescendantNodeID: 2},
		{offset: 1, nodeID: 1, lastDescendantNodeID: 1},
	}

	edges := extractEdges(markers)
	assert.Len(t, edges, 2)
	assert.Contains(t, edges, structureEdge{offset: 1, parentID: 0, childID: 1})
	assert.Contains(t, edges, structureEdge{offset: 1, parentID: 0, childID: 2})
}

func TestExtractEdgesEmpty(t *testing.T) {
	assert.Empty(t, extractEdges(nil))
}

func TestExtractEdgesSingleNode(t *testing.T) {
	markers := []structureMarker{{offset: 9, nodeID: 0, lastDescendantNodeID: 0}}
	assert.Empty(t, extractEdges(markers))
}
