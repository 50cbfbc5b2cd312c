package ns

import (
	"context"
	"math/rand"
	"testing"
)

type fixedPotential struct {
	ndof int
}

func (p fixedPotential) Energy(x []float64) (float64, error) {
	var sum float64
	for _, xi := range x {
		sum += xi * xi
	}
	return sum, nil
}

func (p fixedPotential) RandomConfiguration(rng *rand.Rand) []float64 {
	return make([]float64, p.ndof)
}

func (p fixedPotential) NDof() int { return p.ndof }

func zeroStep(x []float64, stepsize float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for i := range out {
		out[i] += stepsize
	}
	return out
}

func TestWalkerReturnsSeedUnchangedWhenEveryTrialRejected(t *testing.T) {
	pot := fixedPotential{ndof: 1}
	w := NewMonteCarloWalker(pot, StepKernelFunc(zeroStep), nil, 5, nil, nil)

	seed := NewReplica([]float64{0}, 0)
	// Any positive step increases x^2 away from zero, so cutoff 0.01 rejects
	// every trial and the walker must return the seed's own energy bound.
	job := WalkJob{Seed: seed, Cutoff: 0.01, StepSize: 1.0, SeedRNG: 42}

	res, err := w.Walk(context.Background(), job)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if res.NAccept != 0 {
		t.Fatalf("NAccept = %d, want 0", res.NAccept)
	}
	if res.Replica.E != seed.E {
		t.Fatalf("Replica.E = %v, want seed energy %v", res.Replica.E, seed.E)
	}
}

func TestWalkerCountersSumToMCIter(t *testing.T) {
	pot := fixedPotential{ndof: 1}
	step := StepKernelFunc(func(x []float64, stepsize float64, rng *rand.Rand) []float64 {
		return []float64{(rng.Float64()*2 - 1) * stepsize}
	})
	w := NewMonteCarloWalker(pot, step, nil, 50, nil, nil)

	job := WalkJob{Seed: NewReplica([]float64{0}, 0), Cutoff: 10, StepSize: 0.5, SeedRNG: 7}
	res, err := w.Walk(context.Background(), job)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if got := res.NAccept + res.NReject; got != 50 {
		t.Fatalf("NAccept+NReject = %d, want 50", got)
	}
	if got := res.NCutoffReject + res.NTestReject; got != res.NReject {
		t.Fatalf("NCutoffReject+NTestReject = %d, want NReject = %d", got, res.NReject)
	}
}

func TestWalkerDeterministicGivenSameSeedRNG(t *testing.T) {
	pot := fixedPotential{ndof: 2}
	step := StepKernelFunc(func(x []float64, stepsize float64, rng *rand.Rand) []float64 {
		out := make([]float64, len(x))
		for i := range out {
			out[i] = x[i] + (rng.Float64()*2-1)*stepsize
		}
		return out
	})

	run := func() WalkResult {
		w := NewMonteCarloWalker(pot, step, nil, 30, nil, nil)
		job := WalkJob{Seed: NewReplica([]float64{0, 0}, 0), Cutoff: 5, StepSize: 0.3, SeedRNG: 123}
		res, err := w.Walk(context.Background(), job)
		if err != nil {
			t.Fatalf("Walk returned error: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if a.Replica.X[0] != b.Replica.X[0] || a.Replica.X[1] != b.Replica.X[1] {
		t.Fatalf("walks with identical SeedRNG diverged: %v vs %v", a.Replica.X, b.Replica.X)
	}
	if a.NAccept != b.NAccept {
		t.Fatalf("NAccept diverged: %d vs %d", a.NAccept, b.NAccept)
	}
}
