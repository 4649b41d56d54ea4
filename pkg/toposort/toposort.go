// Package toposort provides deterministic topological ordering for the
// operator graphs the circuit scheduler executes. Node names are interned
// to dense integer IDs in registration order, and ties between
// schedulable nodes are broken by that order, so two identically built
// circuits always evaluate their operators in the same sequence.
package toposort

// Graph is a directed graph over string-named nodes, backed by an
// interned-ID adjacency structure. Nodes are expected to be registered
// in a meaningful order: the sort uses registration order as its
// tie-break.
type Graph struct {
	symbols  *SymbolTable
	intGraph *IntGraph
}

// NewGraph initializes a new Graph.
func NewGraph() *Graph {
	return &Graph{
		symbols:  NewSymbolTable(),
		intGraph: NewIntGraph(),
	}
}

// AddNode inserts a new node into the graph. Returns false if the node
// was already present.
func (graph *Graph) AddNode(name string) bool {
	graph.symbols.lock.RLock()
	_, exists := graph.symbols.strToID[name]
	graph.symbols.lock.RUnlock()

	if exists {
		return false
	}

	id := graph.symbols.Intern(name)

	return graph.intGraph.AddNode(id)
}

// AddEdge inserts the link from "from" node to "to" node, registering
// either endpoint if it has not been seen before. Returns the resulting
// in-degree of the destination.
func (graph *Graph) AddEdge(from, to string) int {
	src := graph.symbols.Intern(from)
	dst := graph.symbols.Intern(to)

	graph.intGraph.AddNode(src)
	graph.intGraph.AddNode(dst)

	graph.intGraph.AddEdge(src, dst)

	return graph.intGraph.inDegree[dst]
}

// Toposort returns the nodes in topological order, ties broken by
// registration order. The second result is false when the graph has a
// cycle; the returned prefix then covers only the acyclic part.
func (graph *Graph) Toposort() ([]string, bool) {
	ids, ok := graph.intGraph.TopoSort()

	result := make([]string, len(ids))
	for idx, id := range ids {
		result[idx] = graph.symbols.Resolve(id)
	}

	return result, ok
}

// FindCycle returns a cycle through the given node, as the closed path
// seed -> ... -> seed, or an empty slice when no such cycle exists.
func (graph *Graph) FindCycle(seed string) []string {
	graph.symbols.lock.RLock()
	id, exists := graph.symbols.strToID[seed]
	graph.symbols.lock.RUnlock()

	if !exists {
		return []string{}
	}

	cycleIDs := graph.intGraph.FindCycle(id)

	result := make([]string, len(cycleIDs))
	for idx, cid := range cycleIDs {
		result[idx] = graph.symbols.Resolve(cid)
	}

	return result
}
