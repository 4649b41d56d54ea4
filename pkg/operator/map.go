package operator

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// Map applies f to every key of a Z-set, coalescing collisions in the
// mapped key space. Always reports fixedpoint=true: a pure function of
// its current input can never block an enclosing iterate loop.
func Map[K zset.Ord[K], K2 zset.Ord[K2]](in *zset.Set[K], f func(K) K2) *zset.Set[K2] {
	return zset.Map(in, f)
}

// Filter keeps only the entries of a Z-set whose key satisfies pred.
func Filter[K zset.Ord[K]](in *zset.Set[K], pred func(K) bool) *zset.Set[K] {
	return in.Filter(pred)
}

// AddMap wires Map into a circuit as a unary operator node.
func AddMap[K zset.Ord[K], K2 zset.Ord[K2]](c *circuit.Circuit, name string, in *circuit.Cell[*zset.Set[K]], f func(K) K2) *circuit.Cell[*zset.Set[K2]] {
	out := &circuit.Cell[*zset.Set[K2]]{}

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{in}, func() error {
		circuitSet(out, Map(circuitGet(in), f))
		return nil
	})

	return bind(out, id)
}

// AddMap2 wires a pure binary function into a circuit: each tick, f is
// applied to its two inputs' current values. It is the stream-level
// counterpart of Map, not a relational join — no key matching happens,
// f sees each side's whole value. Plus and Minus are instances of it.
func AddMap2[A, B, C any](c *circuit.Circuit, name string, a *circuit.Cell[A], b *circuit.Cell[B], f func(A, B) C) *circuit.Cell[C] {
	out := circuit.NewCell[C]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{a, b}, func() error {
		circuitSet(out, f(circuitGet(a), circuitGet(b)))
		return nil
	})

	return bind(out, id)
}

// AddFilter wires Filter into a circuit as a unary operator node.
func AddFilter[K zset.Ord[K]](c *circuit.Circuit, name string, in *circuit.Cell[*zset.Set[K]], pred func(K) bool) *circuit.Cell[*zset.Set[K]] {
	out := &circuit.Cell[*zset.Set[K]]{}

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{in}, func() error {
		circuitSet(out, Filter(circuitGet(in), pred))
		return nil
	})

	return bind(out, id)
}
