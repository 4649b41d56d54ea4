package demo

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/operator"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// LabelPropagation drives the circuit built by NewLabelPropagation one
// outer tick at a time: a fixed seed label is propagated along a fixed
// DAG's edges, one hop per inner iteration, until a hop derives nothing.
// Each hop's contribution is
// summed rather than deduplicated, so a node reachable by two distinct
// paths accumulates weight 2, whatever the paths' lengths.
type LabelPropagation struct {
	root   *circuit.RootCircuit
	output *circuit.Cell[*zset.Set[Label]]
}

// NewLabelPropagation builds the circuit for a fixed edge set and seed
// label, re-evaluated identically on every outer tick (there is no
// per-tick input stream in this scenario; driving it more than once
// simply confirms the result is stable).
func NewLabelPropagation(maxIterations int, edges []Edge, seed Label) *LabelPropagation {
	lp := &LabelPropagation{root: circuit.NewRootCircuit()}

	edgeTuples := make([]zset.Tuple[Edge], len(edges))
	for i, e := range edges {
		edgeTuples[i] = zset.Tuple[Edge]{Key: e, Weight: 1}
	}

	edgesCell := circuit.AddSource(lp.root.Circuit, "edges", func() *zset.Set[Edge] {
		return zset.FromTuples(edgeTuples)
	})
	seedCell := circuit.AddSource(lp.root.Circuit, "seed", func() *zset.Set[Label] {
		return zset.FromTuples([]zset.Tuple[Label]{{Key: seed, Weight: 1}})
	})

	var step *labelPropStep

	nr := circuit.Iterate(lp.root.Circuit, "propagate", maxIterations, func(nested *circuit.Circuit) {
		edgesIn := circuit.Import(nested, edgesCell)
		seedIn := circuit.Import(nested, seedCell)

		fb := circuit.NewFeedback(nested, zset.Empty[Label]())

		step = &labelPropStep{own: nested.Scope(), edges: edgesIn, seed: seedIn, prevDelta: fb.Cell()}
		id := nested.AddOperator(step, []circuit.Producer{edgesIn, seedIn, fb.Cell()}, step.eval)
		step.outID = id

		fb.Connect(step.deltaOut())
	})

	lp.output = circuit.Export(nr, step.totalOut())

	return lp
}

// Step evaluates one outer tick and returns the converged label multiset.
func (lp *LabelPropagation) Step() (*zset.Set[Label], error) {
	if err := lp.root.Step(); err != nil {
		return nil, err
	}

	return lp.output.Get(), nil
}

// labelPropStep runs one hop of propagation per inner iteration: the
// first iteration of each epoch seeds the delta from the fixed seed
// label, every later iteration composes the previous iteration's delta
// with the edge relation, and the running total accumulates every
// iteration's delta, a semi-naive evaluation of the propagation.
type labelPropStep struct {
	own circuit.Scope

	edges     *circuit.Cell[*zset.Set[Edge]]
	seed      *circuit.Cell[*zset.Set[Label]]
	prevDelta *circuit.Cell[*zset.Set[Label]]

	seeded bool
	total  *zset.Set[Label]

	delta_  circuit.Cell[*zset.Set[Label]]
	total_  circuit.Cell[*zset.Set[Label]]
	outID   string
	changed bool
}

func (s *labelPropStep) Name() string { return "label-propagate-step" }

func (s *labelPropStep) deltaOut() *circuit.Cell[*zset.Set[Label]] {
	s.delta_.SetProducer(s.outID)
	return &s.delta_
}

func (s *labelPropStep) totalOut() *circuit.Cell[*zset.Set[Label]] {
	s.total_.SetProducer(s.outID)
	return &s.total_
}

// ClockStart resets per-epoch state: a fresh outer tick starts
// propagation over again from the seed label.
func (s *labelPropStep) ClockStart(scope circuit.Scope) {
	if scope == s.own {
		s.seeded = false
		s.total = zset.Empty[Label]()
	}
}

func (s *labelPropStep) ClockEnd(circuit.Scope) error { return nil }

func (s *labelPropStep) Fixedpoint(circuit.Scope) bool { return !s.changed }

func (s *labelPropStep) eval() error {
	prev := s.prevDelta.Get()

	var next *zset.Set[Label]
	if !s.seeded {
		next = s.seed.Get()
		s.seeded = true
	} else {
		labelsByNode := operator.Index(zset.Map(prev, func(l Label) operator.Pair[intKey, intKey] {
			return operator.Pair[intKey, intKey]{Key: intKey(l.Node), Val: intKey(l.Origin)}
		}))
		edgesByFrom := operator.Index(zset.Map(s.edges.Get(), pairFromEdgeBy(edgeFrom, edgeTo)))

		next = operator.Join(labelsByNode, edgesByFrom, func(_ intKey, origin, dst intKey) Label {
			return Label{Node: int(dst), Origin: int(origin)}
		})
	}

	s.changed = !next.IsEmpty()
	s.total = s.total.Plus(next)

	s.delta_.Set(next)
	s.total_.Set(s.total)

	return nil
}
