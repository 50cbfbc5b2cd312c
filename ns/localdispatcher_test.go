package ns

import (
	"context"
	"math/rand"
	"testing"
)

func identityStep(x []float64, stepsize float64, rng *rand.Rand) []float64 {
	return x
}

func TestLocalDispatcherPreservesJobOrder(t *testing.T) {
	pot := fixedPotential{ndof: 1}
	w := NewMonteCarloWalker(pot, StepKernelFunc(identityStep), nil, 1, nil, nil)
	d := NewLocalDispatcher(w, 4, nil)

	jobs := make([]WalkJob, 8)
	for i := range jobs {
		jobs[i] = WalkJob{Seed: NewReplica([]float64{float64(i)}, float64(i*i)), Cutoff: 1e9, StepSize: 0.1, SeedRNG: uint64(i)}
	}

	results, err := d.RunBatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(jobs))
	}
	for i, r := range results {
		if r.Replica.X[0] != float64(i) {
			t.Fatalf("result[%d].X[0] = %v, want %v (order not preserved)", i, r.Replica.X[0], float64(i))
		}
	}
}
