package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intOrd int

func (k intOrd) Compare(other intOrd) int {
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

func TestBatcherCoalescesIdenticalTriples(t *testing.T) {
	b := NewBatcher[intOrd, intOrd, intOrd](0)
	b.Push(1, 10, 0, 2)
	b.Push(1, 10, 0, -2) // cancels
	b.Push(1, 10, 1, 5)
	b.Push(2, 20, 0, 1)

	sealed := b.Seal()
	require.Equal(t, 2, sealed.Len())

	c := sealed.Cursor()
	require.True(t, c.KeyValid())
	assert.Equal(t, intOrd(1), c.Key())
	require.True(t, c.ValValid())
	assert.Equal(t, intOrd(10), c.Val())

	var times []intOrd
	var weights []Weight
	c.MapTimes(func(tm intOrd, w Weight) {
		times = append(times, tm)
		weights = append(weights, w)
	})
	assert.Equal(t, []intOrd{1}, times)
	assert.Equal(t, []Weight{5}, weights)

	c.StepKey()
	require.True(t, c.KeyValid())
	assert.Equal(t, intOrd(2), c.Key())
}

func TestBatcherDropsFullyCancelledKeyVal(t *testing.T) {
	b := NewBatcher[intOrd, intOrd, intOrd](0)
	b.Push(1, 10, 0, 3)
	b.Push(1, 10, 0, -3)

	sealed := b.Seal()
	assert.True(t, sealed.IsEmpty())
}

func TestCursorSeekKeyAndSeekVal(t *testing.T) {
	b := NewBatcher[intOrd, intOrd, intOrd](0)
	b.Push(1, 10, 0, 1)
	b.Push(1, 20, 0, 1)
	b.Push(3, 10, 0, 1)
	b.Push(5, 10, 0, 1)

	sealed := b.Seal()
	c := sealed.Cursor()

	c.SeekKey(intOrd(3))
	require.True(t, c.KeyValid())
	assert.Equal(t, intOrd(3), c.Key())

	c.SeekKey(intOrd(4))
	require.True(t, c.KeyValid())
	assert.Equal(t, intOrd(5), c.Key())

	c.SeekKey(intOrd(100))
	assert.False(t, c.KeyValid())
}

func TestBatcherPushBatchReflattens(t *testing.T) {
	b1 := NewBatcher[intOrd, intOrd, intOrd](0)
	b1.Push(1, 10, 0, 2)
	sealed1 := b1.Seal()

	b2 := NewBatcher[intOrd, intOrd, intOrd](0)
	b2.PushBatch(sealed1)
	b2.Push(1, 10, 0, -2)

	sealed2 := b2.Seal()
	assert.True(t, sealed2.IsEmpty())
}

func TestMultipleValuesUnderSameKeyWalkInOrder(t *testing.T) {
	b := NewBatcher[intOrd, intOrd, intOrd](0)
	b.Push(1, 30, 0, 1)
	b.Push(1, 10, 0, 1)
	b.Push(1, 20, 0, 1)

	sealed := b.Seal()
	c := sealed.Cursor()

	var vals []intOrd
	for c.ValValid() {
		vals = append(vals, c.Val())
		c.StepVal()
	}

	assert.Equal(t, []intOrd{10, 20, 30}, vals)
}
