package trace

import "github.com/arclight-data/dataflow/pkg/batch"

// IntegrateTrace returns tr itself: a Trace already is the running
// integral of the batch stream that built it (every batch ever inserted
// stays visible to its cursor), so integrating it a second time is the
// identity. The function exists so call sites can read
// `IntegrateTrace(s)` the way the algorithm description does, rather than
// special-casing the no-op.
func IntegrateTrace[K Ord[K], V Ord[V], T Time[T]](tr *Trace[K, V, T]) *Trace[K, V, T] {
	return tr
}

// Delayed is a read-only view of a trace as it stood one tick ago: the
// "z⁻¹" lag applied to a trace rather than to a single batch. Advance
// must be called once per tick, after that tick's batch has been
// inserted into the underlying trace, so the delayed view catches up by
// exactly one step.
type Delayed[K Ord[K], V Ord[V], T Time[T]] struct {
	tr      *Trace[K, V, T]
	frozen  []*batch.Batch[K, V, T] // visible now (as of one tick ago)
	pending []*batch.Batch[K, V, T] // snapshot taken at the last Advance, visible after the next one
}

// DelayTrace wraps tr in a one-tick-lagged view. The view starts out
// empty, matching the convention that z⁻¹ of a stream produces nothing
// on its first tick.
func DelayTrace[K Ord[K], V Ord[V], T Time[T]](tr *Trace[K, V, T]) *Delayed[K, V, T] {
	return &Delayed[K, V, T]{tr: tr}
}

// Advance rotates the view by one tick: what was staged becomes visible,
// and the trace's current state is staged for the tick after this one.
func (d *Delayed[K, V, T]) Advance() {
	d.frozen = d.pending
	d.pending = d.tr.snapshotBatches()
}

// Cursor returns a merged cursor over only the batches visible as of one
// tick ago.
func (d *Delayed[K, V, T]) Cursor() *Cursor[K, V, T] {
	if len(d.frozen) == 0 {
		return &Cursor[K, V, T]{}
	}

	cursors := make([]*batch.Cursor[K, V, T], len(d.frozen))
	for i, b := range d.frozen {
		cursors[i] = b.Cursor()
	}

	return &Cursor[K, V, T]{cursors: cursors}
}
