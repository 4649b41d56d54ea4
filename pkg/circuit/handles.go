package circuit

import "iter"

// InputHandle is how a host feeds one source stream of a circuit from
// outside: Append stages a batch of weighted records, Flush makes
// everything staged so far visible to the next Step. The two-phase
// shape lets an ingest adapter accumulate records as they arrive and
// commit them at a step boundary of its choosing. B is the batch type
// the stream's source consumes (a slice of weighted records).
type InputHandle[B any] interface {
	// Append stages a batch of records for a later Flush. Appending
	// after a Flush starts a fresh batch.
	Append(batch B)

	// Flush commits everything appended since the previous Flush, to be
	// consumed by the next Step of the circuit driving this handle.
	Flush()
}

// OutputHandle is how a host reads one sink stream of a circuit after
// each Step: Consolidate returns the latest step's output, and
// Outputs iterates every step's output in order, for hosts that
// dispatch each delta to an external sink rather than polling the
// latest. Z is the stream's value type (an output Z-set).
type OutputHandle[Z any] interface {
	// Consolidate returns the output produced by the most recent Step.
	Consolidate() Z

	// Outputs returns an iterator over every step's output so far, in
	// step order.
	Outputs() iter.Seq[Z]
}

// Build constructs a root circuit by invoking build exactly once with
// the empty circuit, returning the circuit and whatever handle bundle
// build produced (typically a struct of input and output handles). The
// callback must finish all wiring before returning; operators cannot be
// added after the first Step.
func Build[H any](build func(root *Circuit) (H, error)) (*RootCircuit, H, error) {
	r := NewRootCircuit()

	handles, err := build(r.Circuit)
	if err != nil {
		var zero H
		return nil, zero, err
	}

	return r, handles, nil
}
