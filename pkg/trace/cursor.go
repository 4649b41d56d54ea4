package trace

import "github.com/arclight-data/dataflow/pkg/batch"

// Cursor is a k-way merge over every batch cursor in a trace's spine. It
// implements the same key/val contract as batch.Cursor, plus MapTimes,
// but folds updates from every batch that ever touched a given (key,
// val) pair rather than a single batch's view.
type Cursor[K Ord[K], V Ord[V], T Time[T]] struct {
	cursors []*batch.Cursor[K, V, T]
}

// KeyValid reports whether any underlying cursor still has a key.
func (c *Cursor[K, V, T]) KeyValid() bool {
	for _, cur := range c.cursors {
		if cur.KeyValid() {
			return true
		}
	}

	return false
}

// Key returns the smallest key among all underlying cursors' current
// positions. Only valid when KeyValid.
func (c *Cursor[K, V, T]) Key() K {
	first := true

	var min K

	for _, cur := range c.cursors {
		if !cur.KeyValid() {
			continue
		}

		if first || cur.Key().Compare(min) < 0 {
			min = cur.Key()
			first = false
		}
	}

	return min
}

// StepKey advances every cursor positioned on the current key past it.
func (c *Cursor[K, V, T]) StepKey() {
	k := c.Key()
	for _, cur := range c.cursors {
		if cur.KeyValid() && cur.Key().Compare(k) == 0 {
			cur.StepKey()
		}
	}
}

// SeekKey advances every underlying cursor to the first key >= k.
func (c *Cursor[K, V, T]) SeekKey(k K) {
	for _, cur := range c.cursors {
		cur.SeekKey(k)
	}
}

// onKey returns the cursors currently positioned on the merge cursor's
// current key.
func (c *Cursor[K, V, T]) onKey() []*batch.Cursor[K, V, T] {
	if !c.KeyValid() {
		return nil
	}

	k := c.Key()

	out := make([]*batch.Cursor[K, V, T], 0, len(c.cursors))

	for _, cur := range c.cursors {
		if cur.KeyValid() && cur.Key().Compare(k) == 0 {
			out = append(out, cur)
		}
	}

	return out
}

// ValValid reports whether any cursor on the current key still has a
// value.
func (c *Cursor[K, V, T]) ValValid() bool {
	for _, cur := range c.onKey() {
		if cur.ValValid() {
			return true
		}
	}

	return false
}

// Val returns the smallest value among cursors on the current key. Only
// valid when ValValid.
func (c *Cursor[K, V, T]) Val() V {
	first := true

	var min V

	for _, cur := range c.onKey() {
		if !cur.ValValid() {
			continue
		}

		if first || cur.Val().Compare(min) < 0 {
			min = cur.Val()
			first = false
		}
	}

	return min
}

// StepVal advances every current-key cursor positioned on the current
// value past it.
func (c *Cursor[K, V, T]) StepVal() {
	v := c.Val()
	for _, cur := range c.onKey() {
		if cur.ValValid() && cur.Val().Compare(v) == 0 {
			cur.StepVal()
		}
	}
}

// RewindVals resets the value position of every cursor on the current
// key back to its first value.
func (c *Cursor[K, V, T]) RewindVals() {
	for _, cur := range c.onKey() {
		cur.RewindVals()
	}
}

// SeekVal advances every current-key cursor's value position to the
// first value >= v.
func (c *Cursor[K, V, T]) SeekVal(v V) {
	for _, cur := range c.onKey() {
		cur.SeekVal(v)
	}
}

// MapTimes invokes f once per (time, weight) pair recorded against the
// current (key, value) across every batch in the spine, in no particular
// cross-batch order (each batch contributes its own time-sorted run).
func (c *Cursor[K, V, T]) MapTimes(f func(t T, w Weight)) {
	if !c.ValValid() {
		return
	}

	v := c.Val()

	for _, cur := range c.onKey() {
		if cur.ValValid() && cur.Val().Compare(v) == 0 {
			cur.MapTimes(f)
		}
	}
}

// Weight returns the total weight across every time entry of the current
// (key, value) pair, across every batch.
func (c *Cursor[K, V, T]) Weight() Weight {
	var total Weight

	c.MapTimes(func(_ T, w Weight) {
		total += w
	})

	return total
}
