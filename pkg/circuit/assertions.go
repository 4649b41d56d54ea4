package circuit

// AssertionsEnabled gates debug-only invariant checks that stateful
// operators run at clock boundaries (e.g. JoinTrace verifying no pending
// output batcher has already come due before advancing its clock). Left
// on by default; a host under tight latency budgets may turn it off once
// it trusts its own wiring.
var AssertionsEnabled = true
