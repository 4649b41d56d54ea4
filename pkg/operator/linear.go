package operator

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// AddPlus wires the Z-set sum operator into a circuit as a binary node,
// the Map2 instance for pointwise addition.
func AddPlus[K zset.Ord[K]](c *circuit.Circuit, name string, a, b *circuit.Cell[*zset.Set[K]]) *circuit.Cell[*zset.Set[K]] {
	return AddMap2(c, name, a, b, (*zset.Set[K]).Plus)
}

// AddMinus wires the Z-set difference operator into a circuit as a
// binary node.
func AddMinus[K zset.Ord[K]](c *circuit.Circuit, name string, a, b *circuit.Cell[*zset.Set[K]]) *circuit.Cell[*zset.Set[K]] {
	return AddMap2(c, name, a, b, (*zset.Set[K]).Minus)
}

// Index groups a flat Z-set of (K, V) pairs by K into an indexed Z-set.
func Index[K zset.Ord[K], V zset.Ord[V]](in *zset.Set[Pair[K, V]]) *zset.Indexed[K, V] {
	tuples := make([]zset.IndexedTuple[K, V], 0, in.Len())

	in.ForEach(func(p Pair[K, V], w zset.Weight) {
		tuples = append(tuples, zset.IndexedTuple[K, V]{Key: p.Key, Val: p.Val, Weight: w})
	})

	return zset.IndexedFromTuplesCap(tuples, in.Len())
}

// AddIndex wires Index into a circuit as a unary operator node.
func AddIndex[K zset.Ord[K], V zset.Ord[V]](c *circuit.Circuit, name string, in *circuit.Cell[*zset.Set[Pair[K, V]]]) *circuit.Cell[*zset.Indexed[K, V]] {
	out := circuit.NewCell[*zset.Indexed[K, V]]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{in}, func() error {
		circuitSet(out, Index(circuitGet(in)))
		return nil
	})

	return bind(out, id)
}
