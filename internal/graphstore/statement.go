package graphstore

// Statement is one parameterized Cypher-equivalent mutation: a node
// creation, a MERGE, or a MATCH-and-create-relationship, accumulated by the
// Projection Function and executed in order by the Batched Graph Writer.
type Statement struct {
	Cypher string
	Params map[string]any
}
