package ns

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

type harmonic1D struct{}

func (harmonic1D) Energy(x []float64) (float64, error) {
	return 0.5 * x[0] * x[0], nil
}

func (harmonic1D) RandomConfiguration(rng *rand.Rand) []float64 {
	return []float64{(rng.Float64()*2 - 1) * 5}
}

func (harmonic1D) NDof() int { return 1 }

func uniformStep(x []float64, stepsize float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = x[i] + (rng.Float64()*2-1)*stepsize
	}
	return out
}

func newHarmonicEngine(t *testing.T, runID string, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithRunID(runID),
		WithReplicaCount(20, 2),
		WithMaxIterations(50),
		WithETol(0),
		WithMCIter(10),
		WithInitialStepSize(1.0),
		WithMaxStepSize(5.0),
		WithPotential(harmonic1D{}),
		WithStepKernel(StepKernelFunc(uniformStep)),
	}
	e, err := NewEngine(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineRunProducesFiniteLiveSet(t *testing.T) {
	e := newHarmonicEngine(t, "engine-test-run-1")
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Iterations == 0 {
		t.Fatal("expected at least one iteration to run")
	}
	if result.Stopped != "max_iterations" {
		t.Fatalf("Stopped = %q, want max_iterations (etol is 0, disabling spread-based stop)", result.Stopped)
	}
	if len(result.Live) != 20 {
		t.Fatalf("len(Live) = %d, want 20", len(result.Live))
	}
	for _, r := range result.Live {
		if math.IsNaN(r.E) || math.IsInf(r.E, 0) {
			t.Fatalf("live replica has non-finite energy: %v", r.E)
		}
	}
}

func TestEngineIsDeterministicGivenSameRunID(t *testing.T) {
	e1 := newHarmonicEngine(t, "deterministic-run")
	r1, err := e1.Run(context.Background())
	if err != nil {
		t.Fatalf("Run (first): %v", err)
	}

	e2 := newHarmonicEngine(t, "deterministic-run")
	r2, err := e2.Run(context.Background())
	if err != nil {
		t.Fatalf("Run (second): %v", err)
	}

	if r1.Iterations != r2.Iterations {
		t.Fatalf("Iterations diverged: %d vs %d", r1.Iterations, r2.Iterations)
	}
	for i := range r1.Live {
		if r1.Live[i].E != r2.Live[i].E {
			t.Fatalf("live energy %d diverged across identical run ids: %v vs %v", i, r1.Live[i].E, r2.Live[i].E)
		}
	}
}

func TestEngineLiveReplicasAlwaysBelowLastCutoff(t *testing.T) {
	sink := &recordingSink{}
	e := newHarmonicEngine(t, "invariant-check-run", WithTraceSink(sink))
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.iterations) == 0 {
		t.Fatal("expected at least one recorded iteration")
	}
	// The last iteration's cutoff is the lowest of its discarded energies,
	// which the engine records in ascending order.
	lastCutoff := sink.iterations[len(sink.iterations)-1][0]
	for _, r := range result.Live {
		if math.IsNaN(r.E) || math.IsInf(r.E, 0) {
			t.Fatalf("live replica has non-finite energy: %v", r.E)
		}
		if r.E >= lastCutoff {
			t.Fatalf("live replica energy %v >= last cutoff %v", r.E, lastCutoff)
		}
	}
}

// TestEngineStopsOnETol checks spec §4.3 step 8: a large etol should halt
// the run on the first iteration whose live-set spread satisfies it,
// well before MaxIterations.
func TestEngineStopsOnETol(t *testing.T) {
	e := newHarmonicEngine(t, "etol-stop-run", WithETol(1e6))
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stopped != "etol" {
		t.Fatalf("Stopped = %q, want etol", result.Stopped)
	}
	if result.Iterations >= 50 {
		t.Fatalf("Iterations = %d, expected an early etol stop well under MaxIterations", result.Iterations)
	}
}

// TestEngineEmitsFinalLiveSetOnCancellation checks that cancellation is a
// clean stop (spec §4.3 step 8: "on stop, emit the final live-set
// energies" applies to every stop reason, including cancellation).
func TestEngineEmitsFinalLiveSetOnCancellation(t *testing.T) {
	sink := &recordingSink{}
	e := newHarmonicEngine(t, "cancel-run", WithTraceSink(sink))

	// Initialize the live set under a live context, then cancel before
	// Run's loop observes it, so cancellation is reached without ever
	// completing an iteration.
	if err := e.initializeLiveSet(context.Background()); err != nil {
		t.Fatalf("initializeLiveSet: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stopped != "cancelled" {
		t.Fatalf("Stopped = %q, want cancelled", result.Stopped)
	}
	if len(sink.final) != 20 {
		t.Fatalf("RecordFinal received %d energies, want 20", len(sink.final))
	}
}

type recordingSink struct {
	iterations [][]float64
	final      []float64
}

func (s *recordingSink) RecordIteration(_ int, discardedEnergies []float64) error {
	s.iterations = append(s.iterations, append([]float64(nil), discardedEnergies...))
	return nil
}

func (s *recordingSink) RecordFinal(liveEnergies []float64) error {
	s.final = append([]float64(nil), liveEnergies...)
	return nil
}
