// Package nspotential provides reference Potential, StepKernel, and
// AcceptTest implementations for quickstart use by cmd/nsrun and
// cmd/nsworker: a harmonic well, a uniform random-walk step, and a box
// constraint.
package nspotential

import "math/rand"

// Harmonic is an isotropic harmonic oscillator potential: E(x) =
// 0.5 * sum(x_i^2).
type Harmonic struct {
	Dim    int
	Extent float64 // half-width of the uniform box the initial configuration is drawn from
}

// NewHarmonic builds a Harmonic potential over dim dimensions, drawing
// initial configurations from [-extent, extent]^dim.
func NewHarmonic(dim int, extent float64) *Harmonic {
	return &Harmonic{Dim: dim, Extent: extent}
}

// Energy implements ns.Potential.
func (h *Harmonic) Energy(x []float64) (float64, error) {
	var sum float64
	for _, xi := range x {
		sum += xi * xi
	}
	return 0.5 * sum, nil
}

// RandomConfiguration implements ns.Potential.
func (h *Harmonic) RandomConfiguration(rng *rand.Rand) []float64 {
	x := make([]float64, h.Dim)
	for i := range x {
		x[i] = (rng.Float64()*2 - 1) * h.Extent
	}
	return x
}

// NDof implements ns.Potential.
func (h *Harmonic) NDof() int { return h.Dim }
