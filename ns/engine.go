package ns

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/hlslxy/nested-sampling/nstrace"
)

// Result is the outcome of a completed nested sampling run (spec §3).
type Result struct {
	Live       []Replica
	Iterations int
	Stopped    string // "max_iterations", "etol", or "cancelled"
}

// Engine runs the nested sampling iteration loop described in spec §4.3:
// repeatedly discard the worst K live replicas, replace them with walks
// seeded from surviving replicas under the new energy cutoff, and record
// the discarded energies until a stop condition fires.
//
// The engine does not analyze the energy trace it emits (heat capacities,
// evidence integrals are a downstream concern per spec §1's Non-goals); it
// only terminates on live-set energy spread, iteration count, or
// cancellation.
type Engine struct {
	opts   *Options
	walker *MonteCarloWalker

	live     []Replica
	stepSize float64
}

// NewEngine applies opts against the defaults and constructs an Engine
// ready to Run. It does not evaluate the potential or generate any
// replicas; that happens lazily on the first call to Run so construction
// itself cannot fail on a bad Potential.
func NewEngine(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	walker := NewMonteCarloWalker(o.Potential, o.Step, o.AcceptTests, o.MCIter, o.EventSinks, o.Logger)
	if o.Dispatcher == nil {
		o.Dispatcher = NewLocalDispatcher(walker, o.Nprocs, o.Logger)
	}

	return &Engine{
		opts:     o,
		walker:   walker,
		stepSize: clamp(o.InitialStep, o.StepSizeMin, o.MaxStepSize),
	}, nil
}

// Run executes the iteration loop until MaxIterations is reached, the
// live-set energy spread drops below ETol, or ctx is cancelled (spec §4.3
// step 8). On any stop it emits the final live-set energies to the
// configured TraceSink before returning.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if err := e.initializeLiveSet(ctx); err != nil {
		return Result{}, err
	}

	stopReason := "max_iterations"
	iteration := 0
	for ; iteration < e.opts.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			// Cancellation is a clean stop, not an EngineError: emit the
			// final live set the same as any other termination (spec §4.3
			// step 8) instead of discarding progress.
			stopReason = "cancelled"
			break
		}

		iterCtx, span := e.opts.Tracer.Iteration(ctx, iteration)
		stop, err := e.step(iterCtx, iteration)
		nstrace.End(span, err)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				// Cancelled mid-batch: the live set is untouched by the
				// failed step, so stop cleanly like the check above.
				stopReason = "cancelled"
				break
			}
			return Result{}, err
		}
		e.opts.Metrics.IterationCompleted()

		if stop {
			stopReason = "etol"
			iteration++
			break
		}
	}

	if e.opts.Trace != nil {
		final := make([]float64, len(e.live))
		for i, r := range e.live {
			final[i] = r.E
		}
		sort.Float64s(final)
		if err := e.opts.Trace.RecordFinal(final); err != nil {
			e.opts.Logger.Warn("ns: recording final live set failed", "error", err)
		}
	}

	return Result{
		Live:       append([]Replica(nil), e.live...),
		Iterations: iteration,
		Stopped:    stopReason,
	}, nil
}

// step performs one discard-and-replace iteration. It returns true if the
// stop-on-etol condition (spec §4.3 step 8) is satisfied after this
// iteration.
func (e *Engine) step(ctx context.Context, iteration int) (bool, error) {
	sort.Slice(e.live, func(i, j int) bool { return e.live[i].E < e.live[j].E })

	n, k := e.opts.N, e.opts.K
	survivors := e.live[:n-k]
	discarded := e.live[n-k:] // the K highest energies, already ascending
	cutoff := discarded[0].E

	seeds := sampleWithoutReplacement(survivors, k, e.opts.RunID, iteration)

	jobs := make([]WalkJob, k)
	for i, seed := range seeds {
		jobs[i] = WalkJob{
			Seed:     seed,
			Cutoff:   cutoff,
			StepSize: e.stepSize,
			SeedRNG:  deriveSeed(e.opts.RunID, orderKeyFor(iteration, i)),
		}
	}

	batchCtx := ctx
	if e.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, e.opts.BatchTimeout)
		defer cancel()
	}

	e.opts.Metrics.WalksDispatched(len(jobs))
	batchCtx, batchSpan := e.opts.Tracer.WalkBatch(batchCtx, len(jobs))
	start := time.Now()
	results, err := e.opts.Dispatcher.RunBatch(batchCtx, jobs)
	e.opts.Metrics.ObserveWalkBatchSeconds(time.Since(start).Seconds())
	nstrace.End(batchSpan, err)
	if err != nil {
		if errors.Is(batchCtx.Err(), context.DeadlineExceeded) {
			return false, &EngineError{Code: "TIMEOUT", Message: fmt.Sprintf("walk batch exceeded %s", e.opts.BatchTimeout), Cause: err}
		}
		return false, &EngineError{Code: "TRANSPORT_ERROR", Message: "walk batch dispatch failed", Cause: err}
	}
	if len(results) != len(jobs) {
		return false, &EngineError{Code: "INVARIANT_VIOLATION", Message: fmt.Sprintf("dispatcher returned %d results for %d jobs", len(results), len(jobs)), Cause: ErrInvariantViolation}
	}

	var nAccept, nTotal uint64
	for _, r := range results {
		if r.Replica.E >= cutoff {
			return false, &EngineError{Code: "INVARIANT_VIOLATION", Message: fmt.Sprintf("walk returned energy %v >= cutoff %v", r.Replica.E, cutoff), Cause: ErrInvariantViolation}
		}
		nAccept += r.NAccept
		nTotal += r.NAccept + r.NReject
	}
	e.stepSize = adaptStepSize(e.stepSize, nAccept, nTotal, e.opts.TargetRatio, e.opts.StepSizeMin, e.opts.MaxStepSize)
	if nTotal > 0 {
		e.opts.Metrics.SetAcceptRatio(float64(nAccept) / float64(nTotal))
	}
	e.opts.Metrics.SetStepSize(e.stepSize)

	if e.opts.Trace != nil {
		discardedEnergies := make([]float64, len(discarded))
		for i, r := range discarded {
			discardedEnergies[i] = r.E
		}
		if err := e.opts.Trace.RecordIteration(iteration, discardedEnergies); err != nil {
			e.opts.Logger.Warn("ns: recording energy trace failed", "iteration", iteration, "error", err)
		}
	}

	newLive := make([]Replica, 0, n)
	newLive = append(newLive, survivors...)
	for _, r := range results {
		newLive = append(newLive, r.Replica)
	}
	e.live = newLive

	eMin, eMax := e.liveSpread()
	e.opts.Metrics.SetWorstEnergy(eMax)
	e.opts.Metrics.SetBestEnergy(eMin)
	e.opts.Metrics.SetEnergySpread(eMax - eMin)

	return (eMax - eMin) < e.opts.ETol, nil
}

// liveSpread returns (E_min_live, E_max_live) over the current live set.
func (e *Engine) liveSpread() (float64, float64) {
	min, max := e.live[0].E, e.live[0].E
	for _, r := range e.live[1:] {
		if r.E < min {
			min = r.E
		}
		if r.E > max {
			max = r.E
		}
	}
	return min, max
}

func (e *Engine) initializeLiveSet(ctx context.Context) error {
	if e.live != nil {
		return nil
	}
	live := make([]Replica, e.opts.N)
	for i := 0; i < e.opts.N; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		seed := deriveSeed(e.opts.RunID, orderKeyFor(-1, i))
		rng := rand.New(rand.NewSource(int64(seed))) // #nosec G404 -- deterministic initialization RNG
		x := e.opts.Potential.RandomConfiguration(rng)
		en, err := e.opts.Potential.Energy(x)
		if err != nil {
			return &EngineError{Code: "POTENTIAL_ERROR", Message: "failed to evaluate initial replica energy", Cause: err}
		}
		if math.IsNaN(en) || math.IsInf(en, 0) {
			return &EngineError{Code: "POTENTIAL_ERROR", Message: fmt.Sprintf("non-finite initial energy %v", en), Cause: ErrNonFinite}
		}
		live[i] = NewReplica(x, en)
	}
	e.live = live
	return nil
}

// sampleWithoutReplacement draws k replicas from pool without replacement
// using a Fisher-Yates partial shuffle, seeded deterministically from runID
// and iteration so the same run always draws the same seeds.
func sampleWithoutReplacement(pool []Replica, k int, runID string, iteration int) []Replica {
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	seed := deriveSeed(runID, orderKeyFor(iteration, -1))
	rng := rand.New(rand.NewSource(int64(seed))) // #nosec G404 -- deterministic seed selection RNG

	out := make([]Replica, k)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = pool[idx[i]]
	}
	return out
}
