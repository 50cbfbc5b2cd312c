package ns

import "math/rand"

// Potential is the external energy function contract (C2 in the design).
// Concrete implementations are owned by callers of this package; the engine
// never assumes anything about the configuration space beyond this
// interface.
//
// Potential is logically immutable and may be shared read-only across
// dispatcher workers. If a concrete Potential holds mutable caches, the
// driver is responsible for giving each worker its own instance (see
// LocalDispatcher and cmd/nsworker).
type Potential interface {
	// Energy evaluates the scalar energy of configuration x. It must return
	// a finite value; a non-finite result or a non-nil error is fatal and
	// surfaces the offending x to the caller.
	Energy(x []float64) (float64, error)

	// RandomConfiguration draws an initial configuration from whatever prior
	// distribution the potential defines. It is used only to seed the
	// initial live set, never during a walk.
	RandomConfiguration(rng *rand.Rand) []float64

	// NDof reports the dimensionality of the configuration space.
	NDof() int
}
