// Package trace implements the time-indexed trace: an append-only spine
// of batches with tiered compaction, a merged cursor over the whole
// spine, and the delay/integrate views operators build incremental joins
// from.
package trace

import (
	"github.com/arclight-data/dataflow/pkg/batch"
)

// Ord re-exports the key/value ordering contract so callers of this
// package don't need to import batch for the type alone.
type Ord[T any] = batch.Ord[T]

// Time re-exports the time ordering contract.
type Time[T any] = batch.Time[T]

// Weight re-exports the Z-set multiplicity ring.
type Weight = batch.Weight

// Source is satisfied by anything a merge cursor can be built over: a
// live Trace, or a Delayed view of one. Operators that join against the
// other side's trace (JoinTrace) accept a Source so the same code works
// whether the other side is read live or one tick behind.
type Source[K Ord[K], V Ord[V], T Time[T]] interface {
	Cursor() *Cursor[K, V, T]
}

// defaultCompactionFactor controls how aggressively adjacent spine
// batches merge when a trace is built with New: a new batch is folded
// into its predecessor whenever the predecessor is no more than this
// many times larger, giving the spine geometric (roughly log-tiered)
// growth instead of one batch per tick. NewWithCompaction lets a host
// tune this via pkg/config's trace.compaction_factor knob.
const defaultCompactionFactor = 2

// Trace holds the complete history of a relation as a sequence of
// batches, each batch carrying its own slice of (key,val) -> (time,
// weight) updates. Unlike a single Batch, a Trace's cursor walks updates
// across every tick that ever touched a key, not just the latest one.
type Trace[K Ord[K], V Ord[V], T Time[T]] struct {
	spine      []*batch.Batch[K, V, T]
	compaction int
}

// New returns an empty trace with the default compaction factor.
func New[K Ord[K], V Ord[V], T Time[T]]() *Trace[K, V, T] {
	return NewWithCompaction[K, V, T](defaultCompactionFactor)
}

// NewWithCompaction returns an empty trace whose spine merges adjacent
// batches whenever the older one is no more than factor times larger
// than the newer, the tuning knob exposed as
// config.TraceConfig.CompactionFactor. factor < 1 is clamped up to 1,
// at which a new batch is merged only into a predecessor no larger
// than itself.
func NewWithCompaction[K Ord[K], V Ord[V], T Time[T]](factor int) *Trace[K, V, T] {
	if factor < 1 {
		factor = 1
	}

	return &Trace[K, V, T]{compaction: factor}
}

// Insert folds a newly produced batch into the spine and compacts.
// Empty batches are ignored.
func (tr *Trace[K, V, T]) Insert(b *batch.Batch[K, V, T]) {
	if b.IsEmpty() {
		return
	}

	tr.spine = append(tr.spine, b)
	tr.compact()
}

// compact merges the tail of the spine while adjacent batches are within
// compactionFactor of each other's size, keeping the number of batches
// logarithmic in the number of ticks rather than linear.
func (tr *Trace[K, V, T]) compact() {
	for len(tr.spine) >= 2 {
		n := len(tr.spine)
		last, prev := tr.spine[n-1], tr.spine[n-2]

		if prev.Len() > last.Len()*tr.compaction {
			break
		}

		merged := mergeBatches(prev, last)

		next := make([]*batch.Batch[K, V, T], n-1)
		copy(next, tr.spine[:n-2])
		next[n-2] = merged
		tr.spine = next
	}
}

func mergeBatches[K Ord[K], V Ord[V], T Time[T]](a, b *batch.Batch[K, V, T]) *batch.Batch[K, V, T] {
	bldr := batch.NewBatcher[K, V, T](a.Len() + b.Len())
	bldr.PushBatch(a)
	bldr.PushBatch(b)

	return bldr.Seal()
}

// IsEmpty reports whether the trace carries no batches.
func (tr *Trace[K, V, T]) IsEmpty() bool {
	return tr == nil || len(tr.spine) == 0
}

// NumBatches returns the number of batches currently in the spine, after
// compaction. Exposed for tests and diagnostics.
func (tr *Trace[K, V, T]) NumBatches() int {
	if tr == nil {
		return 0
	}

	return len(tr.spine)
}

// Cursor returns a merged cursor over every batch in the spine, walking
// keys and, within a key, values, in sorted order regardless of which
// batch originally carried them.
func (tr *Trace[K, V, T]) Cursor() *Cursor[K, V, T] {
	if tr.IsEmpty() {
		return &Cursor[K, V, T]{}
	}

	cursors := make([]*batch.Cursor[K, V, T], len(tr.spine))
	for i, b := range tr.spine {
		cursors[i] = b.Cursor()
	}

	return &Cursor[K, V, T]{cursors: cursors}
}

// snapshotBatches returns a defensive copy of the current spine. Batches
// themselves are immutable once sealed, so the returned slice stays
// valid even after later inserts or compactions reshape tr.spine.
func (tr *Trace[K, V, T]) snapshotBatches() []*batch.Batch[K, V, T] {
	if tr == nil || len(tr.spine) == 0 {
		return nil
	}

	out := make([]*batch.Batch[K, V, T], len(tr.spine))
	copy(out, tr.spine)

	return out
}
