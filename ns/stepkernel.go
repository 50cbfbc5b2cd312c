package ns

import "math/rand"

// StepKernel proposes a trial configuration from the current one (C3 in the
// design). It must be symmetric: the walker's acceptance rule is a pure
// hard-wall Metropolis test and assumes detailed balance holds for the
// proposal itself.
type StepKernel interface {
	Step(x []float64, stepsize float64, rng *rand.Rand) []float64
}

// StepKernelFunc adapts a plain function to the StepKernel interface.
type StepKernelFunc func(x []float64, stepsize float64, rng *rand.Rand) []float64

// Step implements StepKernel.
func (f StepKernelFunc) Step(x []float64, stepsize float64, rng *rand.Rand) []float64 {
	return f(x, stepsize, rng)
}
