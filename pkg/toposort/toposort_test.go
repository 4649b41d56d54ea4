package toposort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func index(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}

	return -1
}

func addNodes(g *Graph, names ...string) {
	for _, name := range names {
		g.AddNode(name)
	}
}

func TestToposortDuplicatedNode(t *testing.T) {
	graph := NewGraph()

	assert.True(t, graph.AddNode("a"))
	assert.False(t, graph.AddNode("a"))
}

func TestToposortRespectsEdges(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "source", "map", "join", "sink")
	graph.AddEdge("source", "map")
	graph.AddEdge("source", "join")
	graph.AddEdge("map", "join")
	graph.AddEdge("join", "sink")

	order, ok := graph.Toposort()
	require.True(t, ok)
	require.Len(t, order, 4)

	assert.Less(t, index(order, "source"), index(order, "map"))
	assert.Less(t, index(order, "map"), index(order, "join"))
	assert.Less(t, index(order, "join"), index(order, "sink"))
}

func TestToposortBreaksTiesByRegistrationOrder(t *testing.T) {
	// Three independent nodes: no edges force an order, so the sort must
	// fall back to registration order, not name order.
	graph := NewGraph()
	addNodes(graph, "zeta", "alpha", "mid")

	order, ok := graph.Toposort()
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, order)
}

func TestToposortIsDeterministicAcrossRebuilds(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		addNodes(g, "a", "b", "c", "d", "e")
		g.AddEdge("a", "c")
		g.AddEdge("b", "c")
		g.AddEdge("c", "e")
		g.AddEdge("d", "e")

		return g
	}

	first, ok := build().Toposort()
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		again, againOK := build().Toposort()
		require.True(t, againOK)
		assert.Equal(t, first, again)
	}
}

func TestToposortDetectsCycle(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "a", "b", "c")
	graph.AddEdge("a", "b")
	graph.AddEdge("b", "c")
	graph.AddEdge("c", "a")

	_, ok := graph.Toposort()
	assert.False(t, ok)
}

func TestToposortFindCycle(t *testing.T) {
	graph := NewGraph()
	addNodes(graph, "a", "b", "c", "d")
	graph.AddEdge("a", "b")
	graph.AddEdge("b", "c")
	graph.AddEdge("c", "a")
	graph.AddEdge("c", "d")

	cycle := graph.FindCycle("a")
	require.NotEmpty(t, cycle)
	assert.Equal(t, "a", cycle[0])
	assert.Equal(t, "a", cycle[len(cycle)-1])
	assert.Contains(t, cycle, "b")
	assert.Contains(t, cycle, "c")

	assert.Empty(t, graph.FindCycle("d"), "d hangs off the cycle but is not on it")
	assert.Empty(t, graph.FindCycle("missing"))
}

func TestToposortAddEdgeRegistersUnknownNodes(t *testing.T) {
	graph := NewGraph()
	graph.AddEdge("x", "y")

	order, ok := graph.Toposort()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, order)
}
