package demo

import (
	"github.com/arclight-data/dataflow/pkg/circuit"
	"github.com/arclight-data/dataflow/pkg/operator"
	"github.com/arclight-data/dataflow/pkg/trace"
	"github.com/arclight-data/dataflow/pkg/zset"
)

// TwoHopPaths maintains the two-hop path relation of a growing edge set
// incrementally: each tick's output is the change to {(a,c) | (a,b) and
// (b,c) both present}, not a recomputation of it. Unlike the closure
// and propagation demos it runs the trace-backed incremental join, so a
// path whose two edges arrived on different ticks still surfaces — on
// the tick the second edge lands.
//
// Two views of the relation are maintained: the weighted one, where a
// pair reachable through several midpoints carries its path count, and
// a set-valued one kept incrementally by an internal distinct stage,
// where every reachable pair has weight one no matter how many
// midpoints witness it.
type TwoHopPaths struct {
	root     *circuit.RootCircuit
	in       *operator.Input[Edge]
	out      *operator.Output[Edge]
	distinct *operator.Output[Edge]
}

// twoHopHandles is the bundle the circuit builder callback returns.
type twoHopHandles struct {
	in       *operator.Input[Edge]
	out      *operator.Output[Edge]
	distinct *operator.Output[Edge]
}

// NewTwoHopPaths builds the circuit. compactionFactor tunes both edge
// traces' spine merging (config: trace.compaction_factor).
func NewTwoHopPaths(compactionFactor int) (*TwoHopPaths, error) {
	root, handles, err := circuit.Build(func(c *circuit.Circuit) (twoHopHandles, error) {
		in, edges := operator.AddInput[Edge](c, "edges-in")

		// The same delta, indexed both ways: by destination for the
		// left leg of a two-hop path, by source for the right leg.
		byTo := operator.AddIndex(c, "index-by-to",
			operator.AddMap(c, "pair-by-to", edges, pairFromEdgeBy(edgeTo, edgeFrom)))
		byFrom := operator.AddIndex(c, "index-by-from",
			operator.AddMap(c, "pair-by-from", edges, pairFromEdgeBy(edgeFrom, edgeTo)))

		traceByTo := trace.NewWithCompaction[intKey, intKey, circuit.Time](compactionFactor)
		traceByFrom := trace.NewWithCompaction[intKey, intKey, circuit.Time](compactionFactor)

		integratedByTo := operator.AddIntegrate(c, "integrate-by-to", byTo, traceByTo)
		delayedByTo := operator.AddDelayTrace(c, "delay-by-to", integratedByTo)
		integratedByFrom := operator.AddIntegrate(c, "integrate-by-from", byFrom, traceByFrom)

		joined := operator.AddJoinIncremental(c, "two-hop", byTo, delayedByTo, byFrom, integratedByFrom,
			func(_ intKey, src, dst intKey) Edge {
				return Edge{From: int(src), To: int(dst)}
			})

		// The distinct stage collapses per-midpoint multiplicities to
		// set semantics, incrementally: its delta only fires when a
		// pair's first witness appears or its last one goes away.
		pathsByPair := operator.AddIndex(c, "index-paths",
			operator.AddMap(c, "pair-paths", joined, pairFromEdgeBy(edgeFrom, edgeTo)))
		distinctPairs := operator.AddDistinctTrace(c, "distinct-paths", pathsByPair)
		distinctEdges := addFlattenPairs(c, "flatten-paths", distinctPairs)

		return twoHopHandles{
			in:       in,
			out:      operator.AddOutput(c, "paths-out", joined),
			distinct: operator.AddOutput(c, "path-set-out", distinctEdges),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &TwoHopPaths{root: root, in: handles.in, out: handles.out, distinct: handles.distinct}, nil
}

// addFlattenPairs turns an indexed (from -> to) delta back into a flat
// Z-set of edges, the shape the output handle reads.
func addFlattenPairs(c *circuit.Circuit, name string, in *circuit.Cell[*zset.Indexed[intKey, intKey]]) *circuit.Cell[*zset.Set[Edge]] {
	out := circuit.NewCell[*zset.Set[Edge]]()

	id := c.AddOperator(&circuit.Stateless{OperatorName: name}, []circuit.Producer{in}, func() error {
		indexed := in.Get()

		tuples := make([]zset.Tuple[Edge], 0, indexed.Len())
		indexed.ForEach(func(from, to intKey, w zset.Weight) {
			tuples = append(tuples, zset.Tuple[Edge]{Key: Edge{From: int(from), To: int(to)}, Weight: w})
		})

		out.Set(zset.FromTuples(tuples))

		return nil
	})
	out.SetProducer(id)

	return out
}

// Push stages a batch of edges for the next Step.
func (p *TwoHopPaths) Push(edges []Edge) {
	batch := make([]zset.Tuple[Edge], len(edges))
	for i, e := range edges {
		batch[i] = zset.Tuple[Edge]{Key: e, Weight: 1}
	}

	p.in.Append(batch)
	p.in.Flush()
}

// Step evaluates one tick and returns that tick's two-hop path delta.
func (p *TwoHopPaths) Step() (*zset.Set[Edge], error) {
	if err := p.root.Step(); err != nil {
		return nil, err
	}

	return p.out.Consolidate(), nil
}

// Paths returns the accumulated two-hop path relation across every step
// so far, with per-midpoint multiplicities.
func (p *TwoHopPaths) Paths() *zset.Set[Edge] {
	return p.out.Integral()
}

// PathSet returns the set-valued path relation: weight one per
// reachable pair, however many midpoints witness it.
func (p *TwoHopPaths) PathSet() *zset.Set[Edge] {
	return p.distinct.Integral()
}
