// Package circuit implements the operator DAG and scheduler: a circuit
// is a directed acyclic graph of operators wired together before any
// data flows, evaluated one tick at a time in deterministic topological
// order, with nested circuits driven to a fixed point for each outer
// tick.
package circuit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/arclight-data/dataflow/pkg/toposort"
)

// ErrFixedpointNotReached is returned by Step when a nested circuit's
// inner loop does not converge within its iteration cap.
var ErrFixedpointNotReached = errors.New("circuit: fixed point not reached within iteration cap")

// ErrUnboundFeedback is returned when a circuit is stepped while some
// feedback handle was declared but never connected to a producer.
var ErrUnboundFeedback = errors.New("circuit: feedback handle declared but never connected")

// Operator is the protocol every node in a circuit implements: a name for
// diagnostics, and clock hooks bracketing each epoch at a given scope:
// name(), clock_start(scope), clock_end(scope), fixedpoint(scope).
// Concrete operators embed Stateless when they have no state spanning
// ticks (Map, Filter, Plus, Minus, Index, Join, Distinct all qualify);
// stateful operators (JoinTrace, DistinctTrace) implement Fixedpoint
// themselves.
type Operator interface {
	Name() string
	ClockStart(scope Scope)
	ClockEnd(scope Scope) error
	Fixedpoint(scope Scope) bool
}

// Stateless is embedded by operators that are pure functions of their
// current input and never block fixed-point convergence.
type Stateless struct {
	OperatorName string
}

// Name returns the operator's diagnostic name.
func (s *Stateless) Name() string { return s.OperatorName }

// ClockStart is a no-op: stateless operators carry nothing across ticks.
func (s *Stateless) ClockStart(Scope) {}

// ClockEnd is a no-op.
func (s *Stateless) ClockEnd(Scope) error { return nil }

// Fixedpoint always reports true: a pure function never prevents a
// surrounding iterate loop from converging.
func (s *Stateless) Fixedpoint(Scope) bool { return true }

// Producer identifies the node that last wrote a value a downstream
// operator reads, so the circuit can add the corresponding dependency
// edge automatically when the operator is registered.
type Producer interface {
	ProducerID() string
}

// Cell is a single-slot box holding the latest value produced on one
// edge of the circuit. Operators close over Cells to read their inputs
// and publish their outputs; the circuit itself never inspects a Cell's
// contents, only its producer id.
type Cell[T any] struct {
	val      T
	producer string
}

// NewCell returns an unbound cell with no producer. SetProducer must be
// called once, with the id returned by the AddOperator call that will
// write to it, before the cell is used as an input anywhere else.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{}
}

// ProducerID implements Producer.
func (c *Cell[T]) ProducerID() string { return c.producer }

// SetProducer records which node is responsible for writing this cell,
// so that operators reading it as an input get the right dependency edge.
func (c *Cell[T]) SetProducer(id string) { c.producer = id }

// Get returns the cell's current value.
func (c *Cell[T]) Get() T { return c.val }

// Set stores a new value in the cell. Only the operator that owns this
// cell (the one whose AddOperator call's id was passed to SetProducer)
// should call Set.
func (c *Cell[T]) Set(v T) { c.val = v }

type node struct {
	id  string
	op  Operator
	run func() error
}

// feedbackBinding tracks whether a declared feedback handle has been
// connected to its producer; stepping a circuit with an unbound handle
// is a structural error.
type feedbackBinding struct {
	name  string
	bound bool
}

// Circuit is a DAG of operators at a single nesting depth. Use
// NewRoot to build the outermost circuit, and Iterate to nest one
// level deeper.
type Circuit struct {
	id        uuid.UUID
	scope     Scope
	parent    *Circuit
	graph     *toposort.Graph
	nodes     map[string]*node
	order     []string
	feedbacks []func()
	bindings  []*feedbackBinding
	started   bool
}

func newCircuit(scope Scope, parent *Circuit) *Circuit {
	return &Circuit{
		id:     uuid.New(),
		scope:  scope,
		parent: parent,
		graph:  toposort.NewGraph(),
		nodes:  make(map[string]*node),
	}
}

// NewRoot returns a new outermost (scope 0) circuit.
func NewRoot() *Circuit {
	return newCircuit(0, nil)
}

// ID returns the circuit's unique identifier, used to correlate trace
// spans and metric labels across concurrently running circuit instances.
func (c *Circuit) ID() uuid.UUID { return c.id }

// Scope returns the circuit's nesting depth.
func (c *Circuit) Scope() Scope { return c.scope }

func depIDs(inputs []Producer) []string {
	ids := make([]string, 0, len(inputs))

	for _, in := range inputs {
		if in == nil {
			continue
		}

		if id := in.ProducerID(); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// AddOperator registers op as a new node depending on every non-empty
// producer in inputs, and returns the node's id. run is invoked once per
// tick, after every node it depends on has run.
func (c *Circuit) AddOperator(op Operator, inputs []Producer, run func() error) string {
	id := fmt.Sprintf("%s/%s", op.Name(), uuid.NewString())

	c.graph.AddNode(id)

	for _, dep := range depIDs(inputs) {
		c.graph.AddEdge(dep, id)
	}

	c.nodes[id] = &node{id: id, op: op, run: run}
	c.order = nil

	return id
}

func (c *Circuit) topoOrder() ([]string, error) {
	if c.order != nil {
		return c.order, nil
	}

	order, ok := c.graph.Toposort()
	if !ok {
		return nil, fmt.Errorf("circuit: operator graph has a cycle%s", c.describeCycle())
	}

	c.order = order

	return order, nil
}

// describeCycle names the operators on one cycle through the graph, for
// the structural error a mis-wired circuit surfaces at its first Step.
// Feedback loops never hit this: FeedbackHandle deliberately adds no
// edge from its producer back to its placeholder.
func (c *Circuit) describeCycle() string {
	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		cycle := c.graph.FindCycle(id)
		if len(cycle) == 0 {
			continue
		}

		names := make([]string, len(cycle))
		for i, cid := range cycle {
			names[i] = c.nodes[cid].op.Name()
		}

		return ": " + strings.Join(names, " -> ")
	}

	return ""
}

func (c *Circuit) clockStart(scope Scope) {
	for _, id := range c.orderOrEmpty() {
		c.nodes[id].op.ClockStart(scope)
	}
}

func (c *Circuit) clockEnd(scope Scope) error {
	for _, id := range c.orderOrEmpty() {
		if err := c.nodes[id].op.ClockEnd(scope); err != nil {
			return fmt.Errorf("circuit: clock_end(%d) on %s: %w", scope, c.nodes[id].op.Name(), err)
		}
	}

	return nil
}

func (c *Circuit) orderOrEmpty() []string {
	order, err := c.topoOrder()
	if err != nil {
		return nil
	}

	return order
}

// evalOnce runs every node exactly once, in topological order. Feedback
// loops are committed separately (see commitFeedbacks) so callers control
// exactly when a tick's values become visible to the next one.
func (c *Circuit) evalOnce() error {
	order, err := c.topoOrder()
	if err != nil {
		return err
	}

	for _, id := range order {
		if err := c.nodes[id].run(); err != nil {
			return fmt.Errorf("circuit: eval %s: %w", c.nodes[id].op.Name(), err)
		}
	}

	return nil
}

// commitFeedbacks copies every feedback loop's producer value into its
// placeholder cell, making it visible starting with the next call to
// evalOnce.
func (c *Circuit) commitFeedbacks() {
	for _, commit := range c.feedbacks {
		commit()
	}
}

func (c *Circuit) allFixedpoint(scope Scope) bool {
	for _, id := range c.orderOrEmpty() {
		if !c.nodes[id].op.Fixedpoint(scope) {
			return false
		}
	}

	return true
}

// runToFixedpoint runs c's clock_start, then repeatedly evaluates every
// node until every node reports Fixedpoint(c.scope) or maxIterations is
// reached, then runs clock_end. This is the engine behind Iterate: the
// body of a nested fixed-point loop. A non-nil done predicate replaces
// the operators' Fixedpoint conjunction as the termination test.
func (c *Circuit) runToFixedpoint(maxIterations int, done func() bool) error {
	if err := c.checkFeedbacksBound(); err != nil {
		return err
	}

	c.clockStart(c.scope)

	iterations := 0
	for {
		if iterations > 0 {
			// The very first iteration of a fresh epoch runs on the
			// zeroed state clock_start just set up; only later
			// iterations see the previous iteration's feedback values.
			c.commitFeedbacks()
		}

		if err := c.evalOnce(); err != nil {
			return err
		}

		iterations++

		if done != nil {
			if done() {
				break
			}
		} else if c.allFixedpoint(c.scope) {
			break
		}

		if iterations >= maxIterations {
			return fmt.Errorf("%w: scope %d after %d iterations", ErrFixedpointNotReached, c.scope, iterations)
		}
	}

	return c.clockEnd(c.scope)
}

// registerFeedback records a commit closure run at the end of every
// tick of this circuit (see FeedbackHandle.Connect).
func (c *Circuit) registerFeedback(commit func()) {
	c.feedbacks = append(c.feedbacks, commit)
}

// checkFeedbacksBound verifies every declared feedback handle has been
// connected, the structural check a two-phase feedback declaration
// defers from construction to the first tick.
func (c *Circuit) checkFeedbacksBound() error {
	for _, b := range c.bindings {
		if !b.bound {
			return fmt.Errorf("%w: %s (scope %d)", ErrUnboundFeedback, b.name, c.scope)
		}
	}

	return nil
}
