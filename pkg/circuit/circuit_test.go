package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapOp is a minimal stateless operator used to exercise AddOperator
// directly, without pulling in pkg/operator (which itself depends on
// this package).
type mapOp[A, B any] struct {
	Stateless
}

func addMap[A, B any](c *Circuit, name string, in *Cell[A], f func(A) B) *Cell[B] {
	out := &Cell[B]{}

	id := c.AddOperator(&mapOp[A, B]{Stateless: Stateless{OperatorName: name}}, []Producer{in}, func() error {
		out.val = f(in.val)
		return nil
	})
	out.producer = id

	return out
}

func TestStepRunsInTopologicalOrder(t *testing.T) {
	r := NewRootCircuit()

	tick := 0
	src := AddSource(r.Circuit, "source", func() int {
		tick++
		return tick
	})

	doubled := addMap(r.Circuit, "double", src, func(v int) int { return v * 2 })
	tripled := addMap(r.Circuit, "triple", doubled, func(v int) int { return v * 3 })

	require.NoError(t, r.Step())
	assert.Equal(t, 1, src.Get())
	assert.Equal(t, 2, doubled.Get())
	assert.Equal(t, 6, tripled.Get())

	require.NoError(t, r.Step())
	assert.Equal(t, 2, src.Get())
	assert.Equal(t, 12, tripled.Get())
}

func TestPoisonedCircuitReturnsSameError(t *testing.T) {
	r := NewRootCircuit()

	src := AddSource(r.Circuit, "source", func() int { return 1 })
	addMap(r.Circuit, "fail", src, func(int) int { return 0 })

	id := r.Circuit.AddOperator(&Stateless{OperatorName: "boom"}, nil, func() error {
		return assertErr
	})
	_ = id

	err := r.Step()
	require.Error(t, err)
	assert.Same(t, err, r.Step()) // second Step returns the identical poisoned error
}

var assertErr = &sentinelErr{"boom"}

type sentinelErr struct{ msg string }

func (e *sentinelErr) Error() string { return e.msg }

func TestUnbrokenCycleIsAStructuralError(t *testing.T) {
	r := NewRootCircuit()

	a := &Cell[int]{}
	idA := r.Circuit.AddOperator(&Stateless{OperatorName: "forward"}, nil, func() error { return nil })
	a.SetProducer(idA)

	idB := r.Circuit.AddOperator(&Stateless{OperatorName: "backward"}, []Producer{a}, func() error { return nil })

	// Close the loop without a feedback handle: a cycle the scheduler
	// must reject rather than try to order.
	r.Circuit.graph.AddEdge(idB, idA)

	err := r.Step()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
	assert.Contains(t, err.Error(), "forward")
	assert.Contains(t, err.Error(), "backward")
}

func TestFeedbackHandleLagsByOneTick(t *testing.T) {
	r := NewRootCircuit()

	fb := NewFeedback(r.Circuit, 0)
	current := fb.Cell()

	produced := addMap(r.Circuit, "increment", current, func(v int) int { return v + 1 })
	fb.Connect(produced)

	require.NoError(t, r.Step())
	assert.Equal(t, 0, current.Get()) // first tick: feedback still at its zero value
	assert.Equal(t, 1, produced.Get())

	require.NoError(t, r.Step())
	assert.Equal(t, 1, current.Get()) // second tick: sees first tick's produced value
	assert.Equal(t, 2, produced.Get())

	require.NoError(t, r.Step())
	assert.Equal(t, 2, current.Get())
	assert.Equal(t, 3, produced.Get())
}

func TestUnboundFeedbackHandleIsAStructuralError(t *testing.T) {
	r := NewRootCircuit()

	fb := NewFeedback(r.Circuit, 0)
	addMap(r.Circuit, "reader", fb.Cell(), func(v int) int { return v })
	// fb.Connect never called.

	err := r.Step()
	require.ErrorIs(t, err, ErrUnboundFeedback)
	assert.Same(t, err, r.Step(), "structural errors poison the circuit like any other")
}

func TestIterateWhileOverridesFixedpointDetection(t *testing.T) {
	r := NewRootCircuit()

	counter := 0

	nr := IterateWhile(r.Circuit, "bounded-loop", 100, func() bool { return counter >= 3 }, func(nested *Circuit) {
		AddSource(nested, "count", func() int {
			counter++
			return counter
		})
	})
	_ = nr

	require.NoError(t, r.Step())
	assert.Equal(t, 3, counter, "the predicate, not operator fixedpoint, ends the loop")
}

func TestIterateRunsNestedCircuitToFixedpoint(t *testing.T) {
	r := NewRootCircuit()

	limit := AddSource(r.Circuit, "limit", func() int { return 5 })

	nr := Iterate(r.Circuit, "count-up", 100, func(nested *Circuit) {
		bound := Import(nested, limit)

		fb := NewFeedback(nested, 0)
		count := fb.Cell()

		next := &countOp{bound: bound, count: count}
		id := nested.AddOperator(next, []Producer{count, bound}, next.eval)
		next.outID = id

		fb.Connect(next.out())
	})

	result := Export(nr, nr_lastCount(nr))

	require.NoError(t, r.Step())
	assert.Equal(t, 5, result.Get())
}

// countOp increments its feedback cell once per inner iteration until it
// reaches bound's value, reporting Fixedpoint once it stops changing.
type countOp struct {
	Stateless

	bound   *Cell[int]
	count   *Cell[int]
	out_    Cell[int]
	outID   string
	changed bool
}

func (c *countOp) Name() string { return "count-up" }

func (c *countOp) out() *Cell[int] {
	c.out_.producer = c.outID
	return &c.out_
}

func (c *countOp) eval() error {
	next := c.count.Get()
	if next < c.bound.Get() {
		next++
		c.changed = true
	} else {
		c.changed = false
	}

	c.out_.val = next

	return nil
}

func (c *countOp) Fixedpoint(Scope) bool {
	return !c.changed
}

func nr_lastCount(nr *NestedRun) *Cell[int] {
	// The counting node's output cell lives inside the build closure;
	// dig it out of the nested circuit rather than threading it through
	// the test.
	for _, n := range nr.Circuit.nodes {
		if op, ok := n.op.(*countOp); ok {
			return op.out()
		}
	}

	return &Cell[int]{}
}
