package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/zset"
)

func TestAddMap2AppliesBinaryFunctionPerTick(t *testing.T) {
	r := circuit.NewRootCircuit()

	tick := 0
	left := circuit.AddSource(r.Circuit, "left", func() int { tick++; return tick })
	right := circuit.AddSource(r.Circuit, "right", func() int { return 10 })

	sum := AddMap2(r.Circuit, "sum", left, right, func(a, b int) int { return a + b })

	require.NoError(t, r.Step())
	assert.Equal(t, 11, sum.Get())

	require.NoError(t, r.Step())
	assert.Equal(t, 12, sum.Get())
}

func TestAddPlusIsTheMap2InstanceForZSetSum(t *testing.T) {
	r := circuit.NewRootCircuit()

	a := circuit.AddSource(r.Circuit, "a", func() *zset.Set[intKey] {
		return zset.FromTuples([]zset.Tuple[intKey]{{Key: 1, Weight: 2}, {Key: 2, Weight: 1}})
	})
	b := circuit.AddSource(r.Circuit, "b", func() *zset.Set[intKey] {
		return zset.FromTuples([]zset.Tuple[intKey]{{Key: 1, Weight: -2}, {Key: 3, Weight: 1}})
	})

	plus := AddPlus(r.Circuit, "plus", a, b)
	minus := AddMinus(r.Circuit, "minus", a, b)

	require.NoError(t, r.Step())

	assert.Equal(t, zset.Weight(0), plus.Get().Get(1), "cancelled key drops out of the sum")
	assert.Equal(t, zset.Weight(1), plus.Get().Get(2))
	assert.Equal(t, zset.Weight(1), plus.Get().Get(3))

	assert.Equal(t, zset.Weight(4), minus.Get().Get(1))
	assert.Equal(t, zset.Weight(-1), minus.Get().Get(3))
}
