package operator

import (
	"github.com/arclight-data/dataflow/pkg/batch"
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/trace"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// insertIndexedDelta flattens one tick's indexed Z-set delta into a
// single-timestamp batch and folds it into tr.
func insertIndexedDelta[K zset.Ord[K], V zset.Ord[V]](tr *trace.Trace[K, V, circuit.Time], delta *zset.Indexed[K, V], ts circuit.Time) {
	bldr := batch.NewBatcher[K, V, circuit.Time](delta.Len())

	delta.ForEach(func(k K, v V, w zset.Weight) {
		bldr.Push(k, v, ts, w)
	})

	tr.Insert(bldr.Seal())
}

// AddIntegrate wires a sink node that folds each tick's indexed delta
// into tr and republishes tr itself, so downstream operators (JoinTrace,
// AddDelayTrace) depend on this node and therefore always observe the
// trace after the current tick's insert has happened. A trace already
// is the running integral of its batch stream, so integrating amounts
// to keeping that stream flowing into it.
func AddIntegrate[K zset.Ord[K], V zset.Ord[V]](
	c *circuit.Circuit, name string, delta *circuit.Cell[*zset.Indexed[K, V]], tr *trace.Trace[K, V, circuit.Time],
) *circuit.Cell[*trace.Trace[K, V, circuit.Time]] {
	own := c.Scope()
	time := circuit.ClockStart()

	out := circuit.NewCell[*trace.Trace[K, V, circuit.Time]]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{delta}, func() error {
		insertIndexedDelta(tr, circuitGet(delta), time)
		time = time.Advance(own)
		circuitSet(out, tr)
		return nil
	})

	return bind(out, id)
}

// AddDelayTrace wires a node exposing a one-tick-lagged view of an
// already-integrated trace. It depends on the Cell that published the
// trace (typically AddIntegrate's output), so its Advance() always runs
// after that tick's insert, matching Delayed's "insert, then Advance"
// contract for a one-tick-lagged read view.
func AddDelayTrace[K zset.Ord[K], V zset.Ord[V]](
	c *circuit.Circuit, name string, underlying *circuit.Cell[*trace.Trace[K, V, circuit.Time]],
) *circuit.Cell[*trace.Delayed[K, V, circuit.Time]] {
	var delayed *trace.Delayed[K, V, circuit.Time]

	out := circuit.NewCell[*trace.Delayed[K, V, circuit.Time]]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{underlying}, func() error {
		if delayed == nil {
			delayed = trace.DelayTrace(circuitGet(underlying))
		}

		delayed.Advance()
		circuitSet(out, delayed)

		return nil
	})

	return bind(out, id)
}

// AddJoinTrace wires a JoinTrace operator into a circuit. TR is
// typically *trace.Trace or *trace.Delayed - anything satisfying
// trace.Source for the other side's value type.
func AddJoinTrace[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out], TR trace.Source[K, V2, circuit.Time]](
	c *circuit.Circuit, name string,
	index *circuit.Cell[*zset.Indexed[K, V1]], tr *circuit.Cell[TR],
	f func(k K, v1 V1, v2 V2) Out,
) *circuit.Cell[*zset.Set[Out]] {
	jt := NewJoinTrace[K, V1, V2, Out](name, c.Scope(), f)

	out := circuit.NewCell[*zset.Set[Out]]()
	id := c.AddOperator(jt, []circuit.Producer{index, tr}, func() error {
		circuitSet(out, jt.Eval(circuitGet(index), circuitGet(tr)))
		return nil
	})

	return bind(out, id)
}

// AddJoinIncremental wires the standard three-term incremental join
// decomposition as two cooperating JoinTrace nodes plus a Plus:
//
//	ΔOut = z⁻¹(A) ⋈ ΔB  +  ΔA ⋈ B
//
// where z⁻¹(A) is delayedTraceA (A's history as of the previous tick)
// and B is traceB (B's history including this tick's delta, which the
// caller must have already folded in via AddIntegrate upstream of
// traceB). This is algebraically equivalent to the three-term
// ΔA⋈z⁻¹(B) + z⁻¹(A)⋈ΔB + ΔA⋈ΔB expansion since ΔA⋈B already contains
// ΔA⋈ΔB, the standard join_incremental decomposition:
// integrate_trace(a).delay_trace().join(b, f).plus(a.join(integrate_trace(b), f)).
func AddJoinIncremental[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out]](
	c *circuit.Circuit, name string,
	deltaA *circuit.Cell[*zset.Indexed[K, V1]], delayedTraceA *circuit.Cell[*trace.Delayed[K, V1, circuit.Time]],
	deltaB *circuit.Cell[*zset.Indexed[K, V2]], traceB *circuit.Cell[*trace.Trace[K, V2, circuit.Time]],
	f func(k K, v1 V1, v2 V2) Out,
) *circuit.Cell[*zset.Set[Out]] {
	term1 := AddJoinTrace[K, V2, V1, Out](c, name+"/delayed-a-join-delta-b", deltaB, delayedTraceA,
		func(k K, v2 V2, v1 V1) Out { return f(k, v1, v2) })

	term2 := AddJoinTrace[K, V1, V2, Out](c, name+"/delta-a-join-trace-b", deltaA, traceB, f)

	return AddPlus(c, name+"/plus", term1, term2)
}
