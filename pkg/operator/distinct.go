package operator

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/trace"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// Distinct collapses every positive-weight element to weight 1 and drops
// everything else: an idempotent weight-collapse to {0,1}. It is a pure
// function of its current input, so it needs no dedicated circuit
// wiring beyond the usual Stateless node (see AddDistinct).
func Distinct[K zset.Ord[K]](in *zset.Set[K]) *zset.Set[K] {
	return in.Distinct()
}

// AddDistinct wires Distinct into a circuit as a unary, stateless node.
func AddDistinct[K zset.Ord[K]](c *circuit.Circuit, name string, in *circuit.Cell[*zset.Set[K]]) *circuit.Cell[*zset.Set[K]] {
	out := circuit.NewCell[*zset.Set[K]]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{in}, func() error {
		circuitSet(out, Distinct(circuitGet(in)))
		return nil
	})

	return bind(out, id)
}

// DistinctTrace incrementalizes Distinct over a stream of deltas to an
// indexed relation: every tick's delta is folded into an internal trace,
// the relation's total per-(key,val) weight is recomputed and collapsed
// to {0,1}, and the returned delta is the change from the previous
// tick's collapsed result: the same incremental-distinct pattern a
// graph reachability computation uses to walk a relation through
// repeated Distinct passes as new edges arrive.
//
// This recomputes the full collapsed relation from the trace every tick
// rather than reasoning about which keys a delta could possibly flip, so
// it is correct but not asymptotically incremental the way JoinTrace's
// bucketed buffering is - a scoped-down trade documented in DESIGN.md.
type DistinctTrace[K zset.Ord[K], V zset.Ord[V]] struct {
	name string
	own  circuit.Scope
	tr   *trace.Trace[K, V, circuit.Time]
	time circuit.Time
	prev *zset.Indexed[K, V]

	lastDeltaEmpty bool
}

// NewDistinctTrace returns a DistinctTrace operator with its own
// internal trace of the relation, living at scope own.
func NewDistinctTrace[K zset.Ord[K], V zset.Ord[V]](name string, own circuit.Scope) *DistinctTrace[K, V] {
	return &DistinctTrace[K, V]{
		name: name,
		own:  own,
		tr:   trace.New[K, V, circuit.Time](),
		time: circuit.ClockStart(),
		prev: zset.EmptyIndexed[K, V](),
	}
}

// Name implements circuit.Operator.
func (d *DistinctTrace[K, V]) Name() string { return d.name }

// ClockStart is a no-op: DistinctTrace's fixed-point flag is refreshed on
// every Eval call rather than once per epoch.
func (d *DistinctTrace[K, V]) ClockStart(circuit.Scope) {}

// ClockEnd advances this operator's own clock by one tick.
func (d *DistinctTrace[K, V]) ClockEnd(scope circuit.Scope) error {
	if scope == d.own {
		d.time = d.time.Advance(scope + 1)
	}

	return nil
}

// Fixedpoint reports whether the last Eval call produced no change.
func (d *DistinctTrace[K, V]) Fixedpoint(circuit.Scope) bool { return d.lastDeltaEmpty }

// Eval folds delta into the trace, recomputes the collapsed relation, and
// returns the change from the previous tick's collapsed result.
func (d *DistinctTrace[K, V]) Eval(delta *zset.Indexed[K, V]) *zset.Indexed[K, V] {
	insertIndexedDelta(d.tr, delta, d.time)
	d.time = d.time.Advance(d.own)

	current := totalDistinct(d.tr)
	out := current.Minus(d.prev)
	d.prev = current
	d.lastDeltaEmpty = out.IsEmpty()

	return out
}

// totalDistinct walks every (key, val) pair ever seen in tr, sums its
// weight across all timestamps, and collapses the result to {0,1}.
func totalDistinct[K zset.Ord[K], V zset.Ord[V]](tr *trace.Trace[K, V, circuit.Time]) *zset.Indexed[K, V] {
	var tuples []zset.IndexedTuple[K, V]

	c := tr.Cursor()
	for c.KeyValid() {
		k := c.Key()

		for c.ValValid() {
			v := c.Val()
			tuples = append(tuples, zset.IndexedTuple[K, V]{Key: k, Val: v, Weight: c.Weight()})
			c.StepVal()
		}

		c.StepKey()
	}

	return zset.IndexedFromTuples(tuples).Distinct()
}

// AddDistinctTrace wires a DistinctTrace operator into a circuit.
func AddDistinctTrace[K zset.Ord[K], V zset.Ord[V]](
	c *circuit.Circuit, name string, delta *circuit.Cell[*zset.Indexed[K, V]],
) *circuit.Cell[*zset.Indexed[K, V]] {
	dt := NewDistinctTrace[K, V](name, c.Scope())

	out := circuit.NewCell[*zset.Indexed[K, V]]()
	id := c.AddOperator(dt, []circuit.Producer{delta}, func() error {
		circuitSet(out, dt.Eval(circuitGet(delta)))
		return nil
	})

	return bind(out, id)
}
