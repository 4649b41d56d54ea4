// Package demo builds three worked circuits - transitive closure, DAG
// label propagation and incremental two-hop paths - for dataflowctl to
// drive step by step and render.
package demo

import "github.com/arclight-data/dataflow/pkg/operator"

// Edge is a directed graph edge, the element type of the worked
// circuits' edge streams.
type Edge struct {
	From int
	To   int
}

// Compare orders edges lexicographically by (From, To).
func (e Edge) Compare(other Edge) int {
	if e.From != other.From {
		return compareInt(e.From, other.From)
	}

	return compareInt(e.To, other.To)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// intKey is a bare comparable int, used as the shared key type Join and
// Index operate over.
type intKey int

// Compare orders intKey numerically.
func (k intKey) Compare(other intKey) int { return compareInt(int(k), int(other)) }

// Label names a node reached by propagation from a given origin, the
// element type of the label-propagation demo's output stream.
type Label struct {
	Node   int
	Origin int
}

// Compare orders labels lexicographically by (Node, Origin).
func (l Label) Compare(other Label) int {
	if l.Node != other.Node {
		return compareInt(l.Node, other.Node)
	}

	return compareInt(l.Origin, other.Origin)
}

// pairFromEdgeBy builds the Pair Index needs out of a Z-set of edges,
// keyed by whichever endpoint the caller picks - From for indexing a
// relation by its source, To for indexing it by its destination.
func pairFromEdgeBy(key func(Edge) int, val func(Edge) int) func(Edge) operator.Pair[intKey, intKey] {
	return func(e Edge) operator.Pair[intKey, intKey] {
		return operator.Pair[intKey, intKey]{Key: intKey(key(e)), Val: intKey(val(e))}
	}
}
