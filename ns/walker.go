package ns

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// WalkJob describes one constrained Markov chain to run (spec §3). It is
// created by the engine, consumed by exactly one worker, and discarded.
type WalkJob struct {
	Seed     Replica `json:"seed"`
	Cutoff   float64 `json:"cutoff"`
	StepSize float64 `json:"stepsize"`
	SeedRNG  uint64  `json:"seed_rng"`
}

// WalkResult is what a completed walk reports back to the engine (spec §3).
type WalkResult struct {
	Replica       Replica `json:"replica"`
	NAccept       uint64  `json:"n_accept"`
	NReject       uint64  `json:"n_reject"`
	NCutoffReject uint64  `json:"n_cutoff_reject"`
	NTestReject   uint64  `json:"n_test_reject"`
}

// MonteCarloWalker runs one constrained chain of fixed length from a seed
// replica under an energy cutoff (C5 in the design). It performs no I/O and
// never suspends: every trial is pure CPU work.
type MonteCarloWalker struct {
	potential   Potential
	step        StepKernel
	acceptTests AcceptTests
	events      []Observer
	mciter      int
	logger      *slog.Logger
}

// NewMonteCarloWalker constructs a walker that runs mciter trial moves per
// walk. events are invoked as pure observers after every trial, per spec
// §4.1 step 6; acceptTests are the configuration tests a trial must pass in
// addition to the energy cutoff.
func NewMonteCarloWalker(potential Potential, step StepKernel, acceptTests AcceptTests, mciter int, events []Observer, logger *slog.Logger) *MonteCarloWalker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonteCarloWalker{
		potential:   potential,
		step:        step,
		acceptTests: acceptTests,
		events:      events,
		mciter:      mciter,
		logger:      logger,
	}
}

// Walk performs exactly mciter trial moves starting from job.Seed and
// returns the final replica plus acceptance counters (spec §4.1).
//
// Guarantees: deterministic given job.SeedRNG; no I/O; exactly mciter
// trials; the returned replica satisfies e < job.Cutoff and every accept
// test, unless zero trials were accepted — in which case job.Seed is
// returned unchanged, since it already satisfied the constraint.
func (w *MonteCarloWalker) Walk(ctx context.Context, job WalkJob) (WalkResult, error) {
	xCurrent := append([]float64(nil), job.Seed.X...)
	eCurrent := job.Seed.E

	rng := rand.New(rand.NewSource(int64(job.SeedRNG))) // #nosec G404 -- deterministic chain RNG, not security-sensitive

	var res WalkResult
	for i := 0; i < w.mciter; i++ {
		if i%256 == 0 && ctx.Err() != nil {
			return WalkResult{}, ctx.Err()
		}

		xTrial := w.step.Step(xCurrent, job.StepSize, rng)

		eTrial, err := w.potential.Energy(xTrial)
		if err != nil {
			return WalkResult{}, &EngineError{Code: "POTENTIAL_ERROR", Message: fmt.Sprintf("energy evaluation failed at x=%v", xTrial), Cause: err}
		}
		if math.IsNaN(eTrial) || math.IsInf(eTrial, 0) {
			return WalkResult{}, &EngineError{Code: "POTENTIAL_ERROR", Message: fmt.Sprintf("non-finite energy %v at x=%v", eTrial, xTrial), Cause: ErrNonFinite}
		}

		accepted := false
		switch {
		case eTrial >= job.Cutoff:
			res.NCutoffReject++
			res.NReject++
		case !w.acceptTests.All(xTrial):
			res.NTestReject++
			res.NReject++
		default:
			xCurrent, eCurrent = xTrial, eTrial
			res.NAccept++
			accepted = true
		}

		for _, obs := range w.events {
			obs.Observe(xCurrent)
		}

		if w.logger.Enabled(ctx, slog.LevelDebug) {
			w.logger.Debug("ns: trial move", "trial", i, "accepted", accepted, "e_trial", eTrial, "cutoff", job.Cutoff)
		}
	}

	if eCurrent >= job.Cutoff {
		// Can only happen if the seed itself violated the cutoff, which is
		// the engine's bug to diagnose, not the walker's to silently fix.
		return WalkResult{}, &EngineError{Code: "INVARIANT_VIOLATION", Message: fmt.Sprintf("walker state e=%v >= cutoff=%v after %d trials", eCurrent, job.Cutoff, w.mciter), Cause: ErrInvariantViolation}
	}

	res.Replica = NewReplica(xCurrent, eCurrent)
	return res, nil
}

// walkDuration is a thin seam for tests that want to observe how long a
// batch of walks took without depending on wall-clock time directly.
func walkDuration(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}
