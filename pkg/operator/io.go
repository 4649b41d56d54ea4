package operator

import (
	"iter"

	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// Input feeds one Z-set source stream from outside the circuit. Append
// stages weighted records, Flush commits them for the next Step, and
// the source node built by AddInput turns each step's committed batch
// into that tick's input delta. Implements
// circuit.InputHandle[[]zset.Tuple[K]].
//
// An Input is owned by the single goroutine driving the circuit, like
// every other piece of circuit state.
type Input[K zset.Ord[K]] struct {
	pending []zset.Tuple[K]
	staged  []zset.Tuple[K]
}

// AddInput registers a source stream fed through the returned Input
// handle. Each Step consumes whatever was flushed since the previous
// one, coalesced into a Z-set; with nothing flushed, the source
// produces an empty delta.
func AddInput[K zset.Ord[K]](c *circuit.Circuit, name string) (*Input[K], *circuit.Cell[*zset.Set[K]]) {
	in := &Input[K]{}

	cell := circuit.AddSource(c, name, func() *zset.Set[K] {
		tuples := in.staged
		in.staged = nil

		return zset.FromTuples(tuples)
	})

	return in, cell
}

// Append stages a batch of weighted records for a later Flush.
func (in *Input[K]) Append(batch []zset.Tuple[K]) {
	in.pending = append(in.pending, batch...)
}

// Push stages a single record, a convenience over Append for tests and
// hand-driven hosts.
func (in *Input[K]) Push(key K, w zset.Weight) {
	in.pending = append(in.pending, zset.Tuple[K]{Key: key, Weight: w})
}

// Flush commits everything appended since the previous Flush to the
// next Step's input delta.
func (in *Input[K]) Flush() {
	in.staged = append(in.staged, in.pending...)
	in.pending = nil
}

// Output reads one Z-set sink stream of a circuit. Each Step's delta is
// recorded in order; Consolidate returns the latest one, Integral the
// running sum of all of them, and Outputs iterates the per-step deltas
// for hosts that forward each delta to an external sink. Implements
// circuit.OutputHandle[*zset.Set[K]].
type Output[K zset.Ord[K]] struct {
	latest   *zset.Set[K]
	deltas   []*zset.Set[K]
	integral *zset.Set[K]
}

// AddOutput registers a sink node recording every step's value of the
// given stream and returns the handle to read it through.
func AddOutput[K zset.Ord[K]](c *circuit.Circuit, name string, in *circuit.Cell[*zset.Set[K]]) *Output[K] {
	out := &Output[K]{latest: zset.Empty[K](), integral: zset.Empty[K]()}

	op := &circuit.Stateless{OperatorName: name}
	c.AddOperator(op, []circuit.Producer{in}, func() error {
		delta := circuitGet(in)
		if delta == nil {
			delta = zset.Empty[K]()
		}

		out.latest = delta
		out.deltas = append(out.deltas, delta)
		out.integral = out.integral.Plus(delta)

		return nil
	})

	return out
}

// Consolidate returns the delta produced by the most recent Step.
func (o *Output[K]) Consolidate() *zset.Set[K] {
	return o.latest
}

// Integral returns the sum of every delta so far: the full current
// value of the view this stream is the change-stream of.
func (o *Output[K]) Integral() *zset.Set[K] {
	return o.integral
}

// Outputs returns an iterator over every step's delta so far, in step
// order.
func (o *Output[K]) Outputs() iter.Seq[*zset.Set[K]] {
	return func(yield func(*zset.Set[K]) bool) {
		for _, d := range o.deltas {
			if !yield(d) {
				return
			}
		}
	}
}
