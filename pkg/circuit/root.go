package circuit

// RootCircuit is the outermost, scope-0 circuit a caller drives one tick
// at a time via Step. Once a Step call returns an error the circuit is
// poisoned: every subsequent Step and Close call returns the same error
// without re-evaluating any operator.
type RootCircuit struct {
	*Circuit
	err error
}

// NewRootCircuit returns an empty root circuit. Operators are added to
// it via AddSource/AddOperator/Iterate before the first Step call.
func NewRootCircuit() *RootCircuit {
	return &RootCircuit{Circuit: NewRoot()}
}

// Step evaluates every operator once, in deterministic topological
// order, advancing the circuit's clock by one tick. The first call also
// runs clock_start(0) on every operator.
func (r *RootCircuit) Step() error {
	if r.err != nil {
		return r.err
	}

	if !r.started {
		if err := r.checkFeedbacksBound(); err != nil {
			r.err = err
			return err
		}

		r.clockStart(0)
		r.started = true
	} else {
		// The first tick runs on every feedback handle's zero value;
		// committing before it would clobber that zero with the
		// producer cells' not-yet-computed contents.
		r.commitFeedbacks()
	}

	if err := r.evalOnce(); err != nil {
		r.err = err
		return err
	}

	return nil
}

// Err returns the error that poisoned the circuit, if any.
func (r *RootCircuit) Err() error {
	return r.err
}

// Close runs clock_end(0) on every operator, finalizing any state they
// hold. It is a no-op on an already-poisoned circuit.
func (r *RootCircuit) Close() error {
	if r.err != nil {
		return r.err
	}

	return r.clockEnd(0)
}

// AddSource registers a source operator with no inputs: produce is called
// once per tick and its result published on the returned cell.
func AddSource[T any](c *Circuit, name string, produce func() T) *Cell[T] {
	out := &Cell[T]{}

	id := c.AddOperator(&Stateless{OperatorName: name}, nil, func() error {
		out.val = produce()
		return nil
	})
	out.producer = id

	return out
}

// NestedRun is the handle returned by Iterate: the nested circuit itself,
// plus the id of the node in the parent circuit that drives it to a
// fixed point once per parent tick. Export uses that id to make anything
// reading the nested circuit's result depend on the whole inner loop
// having converged first.
type NestedRun struct {
	*Circuit
	parentNodeID string
}

type producerRef struct{ id string }

func (p producerRef) ProducerID() string { return p.id }

// Iterate nests a new circuit one scope deeper than c, builds it via
// build, and registers it in c as a single node that runs the nested
// circuit to a fixed point. maxIterations bounds the inner loop;
// exceeding it surfaces ErrFixedpointNotReached from the enclosing Step
// call.
func Iterate(c *Circuit, name string, maxIterations int, build func(nested *Circuit)) *NestedRun {
	return iterate(c, name, maxIterations, nil, build)
}

// IterateWhile is Iterate with a caller-supplied termination predicate:
// after each inner iteration, done decides whether the loop stops,
// overriding the operators' automatic fixed-point detection. The
// iteration cap still applies.
func IterateWhile(c *Circuit, name string, maxIterations int, done func() bool, build func(nested *Circuit)) *NestedRun {
	return iterate(c, name, maxIterations, done, build)
}

func iterate(c *Circuit, name string, maxIterations int, done func() bool, build func(nested *Circuit)) *NestedRun {
	nested := newCircuit(c.scope+1, c)
	build(nested)

	id := c.AddOperator(&Stateless{OperatorName: name}, nil, func() error {
		return nested.runToFixedpoint(maxIterations, done)
	})

	return &NestedRun{Circuit: nested, parentNodeID: id}
}

// Import re-reads a parent-scope cell once per nested-circuit iteration,
// giving the nested circuit a stable view of a value that the parent
// fixes once per outer tick and does not change while the inner loop
// converges.
func Import[T any](nested *Circuit, parentCell *Cell[T]) *Cell[T] {
	out := &Cell[T]{}

	id := nested.AddOperator(&Stateless{OperatorName: "import"}, nil, func() error {
		out.val = parentCell.val
		return nil
	})
	out.producer = id

	return out
}

// Export publishes a nested circuit's cell back into its parent scope,
// readable once the nested loop driven by nr has converged for the
// current parent tick.
func Export[T any](nr *NestedRun, cell *Cell[T]) *Cell[T] {
	out := &Cell[T]{}

	id := nr.Circuit.parent.AddOperator(&Stateless{OperatorName: "export"}, []Producer{producerRef{id: nr.parentNodeID}}, func() error {
		out.val = cell.val
		return nil
	})
	out.producer = id

	return out
}

// FeedbackHandle is the two-phase placeholder for a feedback loop: Cell
// can be wired into downstream operators before the value that should
// feed it back exists, and Connect later binds the loop's true producer,
// closing the cycle without introducing an edge the scheduler would see
// as a cycle.
//
// Each tick (each inner iteration, when used inside Iterate), the handle
// exposes the PREVIOUS tick's committed value; at the end of the tick its
// value is replaced with whatever the connected producer computed this
// tick, to be read next time.
type FeedbackHandle[T any] struct {
	cur     *Cell[T]
	zero    T
	circuit *Circuit
	scope   Scope
	binding *feedbackBinding
}

// NewFeedback registers a feedback placeholder in c, initialized to zero
// at the start of every epoch at c's own scope. The handle must be
// Connected before the circuit's first tick; a declared-but-unbound
// handle surfaces as ErrUnboundFeedback.
func NewFeedback[T any](c *Circuit, zero T) *FeedbackHandle[T] {
	h := &FeedbackHandle[T]{cur: &Cell[T]{val: zero}, zero: zero, circuit: c, scope: c.scope}

	id := c.AddOperator(&feedbackOp[T]{handle: h}, nil, func() error {
		return nil
	})
	h.cur.producer = id

	h.binding = &feedbackBinding{name: id}
	c.bindings = append(c.bindings, h.binding)

	return h
}

// Cell returns the handle's placeholder cell, for use as an input to
// operators built before the feedback loop's producer exists.
func (h *FeedbackHandle[T]) Cell() *Cell[T] {
	return h.cur
}

// Connect binds producer as the feedback loop's source: from the next
// tick onward, the handle's cell reflects producer's value from the
// prior tick. Connect must be called exactly once per handle.
func (h *FeedbackHandle[T]) Connect(producer *Cell[T]) {
	h.binding.bound = true
	h.circuit.registerFeedback(func() {
		h.cur.val = producer.val
	})
}

// feedbackOp resets the handle to its zero value at the start of every
// epoch at the handle's own scope, so each outer tick's nested iterate
// begins the loop fresh.
type feedbackOp[T any] struct {
	Stateless

	handle *FeedbackHandle[T]
}

func (f *feedbackOp[T]) Name() string { return "feedback" }

func (f *feedbackOp[T]) ClockStart(scope Scope) {
	if scope == f.handle.scope {
		f.handle.cur.val = f.handle.zero
	}
}
