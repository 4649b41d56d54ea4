package demo

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/operator"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// TransitiveClosure drives the circuit built by NewTransitiveClosure one
// outer tick at a time: each tick feeds the next queued batch of edges
// into an accumulating relation, then runs a nested fixed-point loop
// that adds every edge reachable by composing one more hop until no new
// pair appears.
type TransitiveClosure struct {
	root    *circuit.RootCircuit
	batches [][]Edge
	tick    int
	output  *circuit.Cell[*zset.Set[Edge]]
}

// NewTransitiveClosure builds the circuit and queues batches, one per
// outer Step call, to feed as the edge source: e.g. edges added a few
// at a time over several steps, with a cycle-closing edge added later
// to watch reachability jump from a handful of pairs to every pair.
func NewTransitiveClosure(maxIterations int, batches [][]Edge) *TransitiveClosure {
	tc := &TransitiveClosure{root: circuit.NewRootCircuit(), batches: batches}

	source := circuit.AddSource(tc.root.Circuit, "edges-in", func() *zset.Set[Edge] {
		var batch []Edge
		if tc.tick < len(tc.batches) {
			batch = tc.batches[tc.tick]
		}

		tc.tick++

		tuples := make([]zset.Tuple[Edge], len(batch))
		for i, e := range batch {
			tuples[i] = zset.Tuple[Edge]{Key: e, Weight: 1}
		}

		return zset.FromTuples(tuples)
	})

	accumFeedback := circuit.NewFeedback(tc.root.Circuit, zset.Empty[Edge]())
	accumulated := operator.AddPlus(tc.root.Circuit, "accumulate-edges", accumFeedback.Cell(), source)
	accumFeedback.Connect(accumulated)

	var step *closureStep

	nr := circuit.Iterate(tc.root.Circuit, "reachability", maxIterations, func(nested *circuit.Circuit) {
		edges := circuit.Import(nested, accumulated)

		fb := circuit.NewFeedback(nested, zset.Empty[Edge]())

		step = &closureStep{edges: edges, prevPaths: fb.Cell()}
		id := nested.AddOperator(step, []circuit.Producer{edges, fb.Cell()}, step.eval)
		step.outID = id

		fb.Connect(step.out())
	})

	tc.output = circuit.Export(nr, step.out())

	return tc
}

// Step evaluates one outer tick and returns the newly converged
// reachability relation.
func (tc *TransitiveClosure) Step() (*zset.Set[Edge], error) {
	if err := tc.root.Step(); err != nil {
		return nil, err
	}

	return tc.output.Get(), nil
}

// closureStep computes one inner iteration of transitive closure: union
// the accumulated edges with every path composed from the previous
// iteration's paths and a direct edge, then collapse to {0,1} weights.
// Iteration stops once that union stops changing, using Distinct's
// idempotence as the loop's convergence test.
type closureStep struct {
	circuit.Stateless

	edges     *circuit.Cell[*zset.Set[Edge]]
	prevPaths *circuit.Cell[*zset.Set[Edge]]

	out_    circuit.Cell[*zset.Set[Edge]]
	outID   string
	changed bool
}

func (c *closureStep) Name() string { return "closure-step" }

func (c *closureStep) out() *circuit.Cell[*zset.Set[Edge]] {
	c.out_.SetProducer(c.outID)
	return &c.out_
}

func (c *closureStep) eval() error {
	edges := c.edges.Get()
	prev := c.prevPaths.Get()

	edgesByFrom := operator.Index(zset.Map(edges, pairFromEdgeBy(edgeFrom, edgeTo)))
	pathsByTo := operator.Index(zset.Map(prev, pairFromEdgeBy(edgeTo, edgeFrom)))

	composed := operator.Join(pathsByTo, edgesByFrom, func(_ intKey, start, end intKey) Edge {
		return Edge{From: int(start), To: int(end)}
	})

	candidate := operator.Distinct(edges.Plus(prev).Plus(composed))

	c.changed = !candidate.Equal(prev)
	c.out_.Set(candidate)

	return nil
}

func (c *closureStep) Fixedpoint(circuit.Scope) bool { return !c.changed }

func edgeFrom(e Edge) int { return e.From }
func edgeTo(e Edge) int   { return e.To }
