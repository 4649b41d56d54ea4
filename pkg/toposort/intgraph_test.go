package toposort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntGraphChain(t *testing.T) {
	g := NewIntGraph()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)

	sorted, ok := g.TopoSort()
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
}

func TestIntGraphCycle(t *testing.T) {
	g := NewIntGraph()
	g.AddEdge(0, 1)
	g.AddEdge(1, 0)

	_, ok := g.TopoSort()
	assert.False(t, ok)
}

func TestIntGraphDiamondPrefersLowerIDs(t *testing.T) {
	g := NewIntGraph()
	g.AddEdge(3, 0)
	g.AddEdge(3, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 2)

	sorted, ok := g.TopoSort()
	require.True(t, ok)

	// 3 unlocks both 0 and 1; the ready queue emits the lower ID first.
	assert.Equal(t, []int{3, 0, 1, 2}, sorted)
}

func TestIntGraphIsolatedNodeStillEmitted(t *testing.T) {
	g := NewIntGraph()
	g.AddNode(2)
	g.AddEdge(0, 1)

	sorted, ok := g.TopoSort()
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, sorted)
}

func TestIntGraphDuplicateEdgeIgnored(t *testing.T) {
	g := NewIntGraph()
	require.True(t, g.AddEdge(0, 1))
	require.False(t, g.AddEdge(0, 1))

	assert.Equal(t, 1, g.inDegree[1])
}

func TestIntGraphFindCycle(t *testing.T) {
	g := NewIntGraph()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)

	cycle := g.FindCycle(0)
	assert.Equal(t, []int{0, 1, 2, 0}, cycle)

	assert.Empty(t, g.FindCycle(99))
}
