// Package operator implements the dataflow operators: pure per-tick
// transforms (Map, Map2, Filter, Plus, Minus, Index, Join, Distinct) and
// the stateful, trace-aware operators that make incremental evaluation
// possible (JoinTrace, DistinctTrace).
//
// Every operator is offered two ways: a plain function over zset/batch/
// trace values, usable standalone or in a test, and a circuit wiring
// helper that wraps the same logic as a circuit.Operator node.
package operator

import "github.com/arclight-data/dataflow/pkg/zset"

// Pair is an ordered (key, value) tuple usable as a Z-set element in its
// own right — the shape Index consumes to build an indexed Z-set out of
// a flat one.
type Pair[K zset.Ord[K], V zset.Ord[V]] struct {
	Key K
	Val V
}

// Compare orders pairs lexicographically by (Key, Val).
func (p Pair[K, V]) Compare(other Pair[K, V]) int {
	if c := p.Key.Compare(other.Key); c != 0 {
		return c
	}

	return p.Val.Compare(other.Val)
}
