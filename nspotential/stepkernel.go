package nspotential

import "math/rand"

// UniformStep proposes a new configuration by perturbing each coordinate
// independently by a uniform draw in [-stepsize, stepsize]. It is
// symmetric, satisfying the requirement ns.StepKernel documents.
func UniformStep(x []float64, stepsize float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(x))
	for i, xi := range x {
		out[i] = xi + (rng.Float64()*2-1)*stepsize
	}
	return out
}
