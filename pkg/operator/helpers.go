package operator

import "github.com/arclight-data/dataflow/pkg/circuit"

// circuitGet and circuitSet exist only to keep the per-operator wiring
// functions in this package terse; they are thin wrappers around Cell's
// exported Get/Set.
func circuitGet[T any](c *circuit.Cell[T]) T { return c.Get() }

func circuitSet[T any](c *circuit.Cell[T], v T) { c.Set(v) }

func bind[T any](c *circuit.Cell[T], producerID string) *circuit.Cell[T] {
	c.SetProducer(producerID)
	return c
}
