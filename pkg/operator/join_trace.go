package operator

import (
	"errors"
	"fmt"

	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/trace"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// ErrPendingBatcherDue reports a broken clock invariant: JoinTrace must
// never reach clock_end with a pending output batcher whose timestamp
// has already passed.
var ErrPendingBatcherDue = errors.New("operator: join_trace has a pending output batcher at or before its own time")

type timeBucket[Out zset.Ord[Out]] struct {
	ts     circuit.Time
	tuples []zset.Tuple[Out]
}

// JoinTrace computes Index ⋈ Trace incrementally: one side is the
// current tick's delta (an indexed Z-set), the other is the full
// historical trace of the other relation. Because a single key's match
// can straddle many past timestamps, results are bucketed by the join of
// the match's two timestamps and only flushed once their bucket's time
// has arrived. The buffering scheme is logically a Time -> Batcher map,
// kept here as a slice in insertion order, searched linearly, since
// circuit.Time is not a comparable Go map key.
type JoinTrace[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out]] struct {
	name string
	f    func(k K, v1 V1, v2 V2) Out
	time circuit.Time
	own  circuit.Scope

	pending []timeBucket[Out]

	emptyInput  bool
	emptyOutput bool
}

// NewJoinTrace returns a JoinTrace operator living at scope own, whose
// clock starts at circuit.ClockStart().
func NewJoinTrace[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out]](
	name string, own circuit.Scope, f func(k K, v1 V1, v2 V2) Out,
) *JoinTrace[K, V1, V2, Out] {
	return &JoinTrace[K, V1, V2, Out]{name: name, f: f, time: circuit.ClockStart(), own: own}
}

// Name implements circuit.Operator.
func (j *JoinTrace[K, V1, V2, Out]) Name() string { return j.name }

// ClockStart resets the fixed-point flags at the start of a fresh epoch
// at this operator's own scope.
func (j *JoinTrace[K, V1, V2, Out]) ClockStart(scope circuit.Scope) {
	if scope == j.own {
		j.emptyInput = false
		j.emptyOutput = false
	}
}

// ClockEnd verifies no pending output bucket has already come due, then
// advances the operator's clock by one tick at the scope one level
// deeper than its own — the next nested epoch this trace's consumers
// will see.
func (j *JoinTrace[K, V1, V2, Out]) ClockEnd(scope circuit.Scope) error {
	if scope != j.own {
		return nil
	}

	if circuit.AssertionsEnabled {
		for _, b := range j.pending {
			if b.ts.LessEqual(j.time) {
				return fmt.Errorf("%w: bucket at %v, time %v", ErrPendingBatcherDue, b.ts, j.time)
			}
		}
	}

	j.time = j.time.Advance(scope + 1)

	return nil
}

// Fixedpoint reports whether this operator can stop blocking an
// enclosing iterate loop: both its input and its last output were empty,
// and nothing remains buffered for a timestamp within the current epoch.
func (j *JoinTrace[K, V1, V2, Out]) Fixedpoint(scope circuit.Scope) bool {
	if !j.emptyInput || !j.emptyOutput {
		return false
	}

	epochEnd := j.time.EpochEnd(scope)
	for _, b := range j.pending {
		if b.ts.LessEqual(epochEnd) {
			return false
		}
	}

	return true
}

func (j *JoinTrace[K, V1, V2, Out]) bucket(ts circuit.Time) *timeBucket[Out] {
	for i := range j.pending {
		if j.pending[i].ts.Compare(ts) == 0 {
			return &j.pending[i]
		}
	}

	j.pending = append(j.pending, timeBucket[Out]{ts: ts})

	return &j.pending[len(j.pending)-1]
}

// Eval joins this tick's delta (index) against the accumulated trace of
// the other side, bucketing every match by the join of its source
// timestamp with this operator's own clock, then flushing and returning
// whatever bucket is keyed exactly at the current time.
func (j *JoinTrace[K, V1, V2, Out]) Eval(index *zset.Indexed[K, V1], tr trace.Source[K, V2, circuit.Time]) *zset.Set[Out] {
	j.emptyInput = index.IsEmpty()

	ci := index.Cursor()
	ct := tr.Cursor()

	for ci.KeyValid() && ct.KeyValid() {
		switch ci.Key().Compare(ct.Key()) {
		case -1:
			ci.SeekKey(ct.Key())
		case 1:
			ct.SeekKey(ci.Key())
		default:
			k := ci.Key()

			for ci.ValValid() {
				v1, w1 := ci.Val(), ci.Weight()

				ct.RewindVals()
				for ct.ValValid() {
					v2 := ct.Val()

					ct.MapTimes(func(ts circuit.Time, w2 zset.Weight) {
						b := j.bucket(ts.Join(j.time))
						b.tuples = append(b.tuples, zset.Tuple[Out]{Key: j.f(k, v1, v2), Weight: w1 * w2})
					})

					ct.StepVal()
				}

				ci.StepVal()
			}

			ci.StepKey()
			ct.StepKey()
		}
	}

	result := j.flush(j.time)

	j.emptyOutput = result.IsEmpty()
	j.time = j.time.Advance(j.own)

	return result
}

func (j *JoinTrace[K, V1, V2, Out]) flush(ts circuit.Time) *zset.Set[Out] {
	for i := range j.pending {
		if j.pending[i].ts.Compare(ts) == 0 {
			tuples := j.pending[i].tuples
			j.pending = append(j.pending[:i], j.pending[i+1:]...)

			return zset.FromTuples(tuples)
		}
	}

	return zset.Empty[Out]()
}
