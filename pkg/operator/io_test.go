package operator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// The concrete handles must satisfy the host-facing contracts.
var (
	_ circuit.InputHandle[[]zset.Tuple[intKey]] = (*Input[intKey])(nil)
	_ circuit.OutputHandle[*zset.Set[intKey]]   = (*Output[intKey])(nil)
)

// ioHandles is the handle bundle the Build callback returns for the
// doubling circuit the tests below drive.
type ioHandles struct {
	in  *Input[intKey]
	out *Output[intKey]
}

func buildDoublingCircuit(t *testing.T) (*circuit.RootCircuit, ioHandles) {
	t.Helper()

	root, handles, err := circuit.Build(func(c *circuit.Circuit) (ioHandles, error) {
		in, inCell := AddInput[intKey](c, "in")
		doubled := AddMap(c, "double", inCell, func(k intKey) intKey { return k * 2 })
		out := AddOutput(c, "out", doubled)

		return ioHandles{in: in, out: out}, nil
	})
	require.NoError(t, err)

	return root, handles
}

func TestInputFlushCommitsForTheNextStepOnly(t *testing.T) {
	root, h := buildDoublingCircuit(t)

	h.in.Append([]zset.Tuple[intKey]{{Key: 1, Weight: 1}, {Key: 2, Weight: 3}})

	// Appended but not flushed: the first step must see an empty delta.
	require.NoError(t, root.Step())
	assert.True(t, h.out.Consolidate().IsEmpty())

	h.in.Flush()
	require.NoError(t, root.Step())
	assert.Equal(t, zset.Weight(1), h.out.Consolidate().Get(2))
	assert.Equal(t, zset.Weight(3), h.out.Consolidate().Get(4))
}

func TestInputCoalescesAcrossAppends(t *testing.T) {
	root, h := buildDoublingCircuit(t)

	h.in.Push(1, 2)
	h.in.Push(1, -2)
	h.in.Push(3, 1)
	h.in.Flush()

	require.NoError(t, root.Step())

	delta := h.out.Consolidate()
	assert.Equal(t, 1, delta.Len(), "cancelled key must not survive coalescing")
	assert.Equal(t, zset.Weight(1), delta.Get(6))
}

func TestOutputIteratesSuccessiveDeltasAndIntegrates(t *testing.T) {
	root, h := buildDoublingCircuit(t)

	h.in.Push(1, 1)
	h.in.Flush()
	require.NoError(t, root.Step())

	h.in.Push(1, 1)
	h.in.Push(2, 1)
	h.in.Flush()
	require.NoError(t, root.Step())

	var lens []int
	for delta := range h.out.Outputs() {
		lens = append(lens, delta.Len())
	}

	assert.Equal(t, []int{1, 2}, lens)

	integral := h.out.Integral()
	assert.Equal(t, zset.Weight(2), integral.Get(2))
	assert.Equal(t, zset.Weight(1), integral.Get(4))
}

var assertAnError = errors.New("wiring failed")

func TestBuildPropagatesCallbackError(t *testing.T) {
	_, _, err := circuit.Build(func(*circuit.Circuit) (struct{}, error) {
		return struct{}{}, assertAnError
	})

	assert.ErrorIs(t, err, assertAnError)
}
