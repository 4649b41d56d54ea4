package operator

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// Join computes the relational equi-join of two indexed Z-sets sharing
// key type K, applying f to every matching (key, v1, v2) triple and
// summing weights across the cross product of matching values, via a
// dual-cursor merge over both sides' sorted keys.
//
// The output buffer is pre-sized to min(|A|,|B|) as a capacity hint
// only: a key carrying several values on both sides yields more matches
// than that, and the buffer then grows as needed.
func Join[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out]](
	a *zset.Indexed[K, V1], b *zset.Indexed[K, V2], f func(k K, v1 V1, v2 V2) Out,
) *zset.Set[Out] {
	capHint := a.Len()
	if b.Len() < capHint {
		capHint = b.Len()
	}

	out := make([]zset.Tuple[Out], 0, capHint)

	ca, cb := a.Cursor(), b.Cursor()

	for ca.KeyValid() && cb.KeyValid() {
		switch ca.Key().Compare(cb.Key()) {
		case -1:
			ca.SeekKey(cb.Key())
		case 1:
			cb.SeekKey(ca.Key())
		default:
			k := ca.Key()

			for ca.ValValid() {
				v1, w1 := ca.Val(), ca.Weight()

				cb.RewindVals()
				for cb.ValValid() {
					v2, w2 := cb.Val(), cb.Weight()
					out = append(out, zset.Tuple[Out]{Key: f(k, v1, v2), Weight: w1 * w2})
					cb.StepVal()
				}

				ca.StepVal()
			}

			ca.StepKey()
			cb.StepKey()
		}
	}

	return zset.FromTuplesCap(out, capHint)
}

// AddJoin wires Join into a circuit as a binary operator node.
func AddJoin[K zset.Ord[K], V1 zset.Ord[V1], V2 zset.Ord[V2], Out zset.Ord[Out]](
	c *circuit.Circuit, name string,
	a *circuit.Cell[*zset.Indexed[K, V1]], b *circuit.Cell[*zset.Indexed[K, V2]],
	f func(k K, v1 V1, v2 V2) Out,
) *circuit.Cell[*zset.Set[Out]] {
	out := circuit.NewCell[*zset.Set[Out]]()

	op := &circuit.Stateless{OperatorName: name}
	id := c.AddOperator(op, []circuit.Producer{a, b}, func() error {
		circuitSet(out, Join(circuitGet(a), circuitGet(b), f))
		return nil
	})

	return bind(out, id)
}
