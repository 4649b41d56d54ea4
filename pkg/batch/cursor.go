package batch

// Cursor walks a Batch key-major, value-minor, exposing the per-(key,val)
// time list through MapTimes: key_valid/key/step_key/seek_key at the
// outer level, val_valid/val/step_val/rewind_vals/seek_val at the inner
// level, plus weight() and map_times() for the time dimension.
type Cursor[K Ord[K], V Ord[V], T Time[T]] struct {
	entries []batchEntry[K, V, T]
	keyPos  int
	valPos  int
}

// KeyValid reports whether the cursor is positioned on a key.
func (c *Cursor[K, V, T]) KeyValid() bool {
	return c.keyPos < len(c.entries)
}

// Key returns the current entry's key. Only valid when KeyValid.
func (c *Cursor[K, V, T]) Key() K {
	return c.entries[c.keyPos].key
}

func (c *Cursor[K, V, T]) keyRunEnd() int {
	i := c.keyPos
	for i < len(c.entries) && c.entries[i].key.Compare(c.Key()) == 0 {
		i++
	}

	return i
}

// StepKey advances to the next distinct key and rewinds the value cursor.
func (c *Cursor[K, V, T]) StepKey() {
	c.keyPos = c.keyRunEnd()
	c.valPos = 0
}

// SeekKey advances to the first key >= k.
func (c *Cursor[K, V, T]) SeekKey(k K) {
	for c.KeyValid() && c.Key().Compare(k) < 0 {
		c.StepKey()
	}

	c.valPos = 0
}

// ValValid reports whether the cursor is positioned on a value within the
// current key's run.
func (c *Cursor[K, V, T]) ValValid() bool {
	return c.KeyValid() && c.keyPos+c.valPos < c.keyRunEnd()
}

// Val returns the current value. Only valid when ValValid.
func (c *Cursor[K, V, T]) Val() V {
	return c.entries[c.keyPos+c.valPos].val
}

// StepVal advances to the next value under the current key.
func (c *Cursor[K, V, T]) StepVal() {
	c.valPos++
}

// RewindVals resets the value cursor to the first value of the current key.
func (c *Cursor[K, V, T]) RewindVals() {
	c.valPos = 0
}

// SeekVal advances the value cursor to the first value >= v within the
// current key's run.
func (c *Cursor[K, V, T]) SeekVal(v V) {
	for c.ValValid() && c.Val().Compare(v) < 0 {
		c.valPos++
	}
}

// Weight returns the total weight across every time entry of the current
// (key, value) pair. Most callers that don't care about individual times
// use this; callers folding per-time deltas use MapTimes instead.
func (c *Cursor[K, V, T]) Weight() Weight {
	var total Weight
	for _, tw := range c.entries[c.keyPos+c.valPos].times {
		total += tw.Weight
	}

	return total
}

// MapTimes invokes f once per (time, weight) pair recorded against the
// current (key, value), in time order.
func (c *Cursor[K, V, T]) MapTimes(f func(t T, w Weight)) {
	for _, tw := range c.entries[c.keyPos+c.valPos].times {
		f(tw.Time, tw.Weight)
	}
}
