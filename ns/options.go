package ns

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hlslxy/nested-sampling/nsmetrics"
	"github.com/hlslxy/nested-sampling/nstrace"
)

// Options collects everything needed to construct an Engine (spec §6). It
// is built through a sequence of Option functions, mirroring the teacher's
// functional-options style rather than a single large constructor.
type Options struct {
	RunID string

	N int // live replica set size
	K int // replicas discarded and reseeded per iteration

	MaxIterations int
	MCIter        int
	ETol          float64 // stop when (E_max_live - E_min_live) < ETol

	InitialStep  float64
	StepSizeMin  float64
	MaxStepSize  float64
	TargetRatio  float64
	BatchTimeout time.Duration // 0 means no per-batch timeout

	Nprocs int

	Potential   Potential
	Step        StepKernel
	AcceptTests AcceptTests
	EventSinks  []Observer
	Dispatcher  WalkDispatcher
	Trace       TraceSink

	Logger  *slog.Logger
	Metrics *nsmetrics.Metrics
	Tracer  *nstrace.Tracer
}

// Option mutates an in-progress Options, returning an error if the value it
// sets is invalid on its own terms (cross-field validation happens once, in
// validate, after every Option has run).
type Option func(*Options) error

func defaultOptions() *Options {
	return &Options{
		MCIter:      20,
		ETol:        0,
		InitialStep: 0.1,
		StepSizeMin: 0,
		TargetRatio: 0.5,
		Nprocs:      1,
		Logger:      slog.Default(),
	}
}

// WithRunID sets the identifier used to derive deterministic per-walk seeds
// and to tag persisted trace records. Required.
func WithRunID(id string) Option {
	return func(o *Options) error {
		if id == "" {
			return &EngineError{Code: "CONFIG_ERROR", Message: "run id must not be empty"}
		}
		o.RunID = id
		return nil
	}
}

// WithReplicaCount sets the live set size N and the per-iteration discard
// count K. Required.
func WithReplicaCount(n, k int) Option {
	return func(o *Options) error {
		if n < 2 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("n must be >= 2, got %d", n)}
		}
		if k < 1 || k >= n {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("k must satisfy 1 <= k < n, got k=%d n=%d", k, n)}
		}
		if k > n-k {
			// Without-replacement seed sampling draws k seeds from the n-k
			// survivors; it cannot draw more seeds than there are survivors.
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("k must satisfy k <= n-k for without-replacement seeding, got k=%d n=%d", k, n)}
		}
		o.N, o.K = n, k
		return nil
	}
}

// WithMaxIterations bounds the run length. Required.
func WithMaxIterations(max int) Option {
	return func(o *Options) error {
		if max < 1 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("max iterations must be >= 1, got %d", max)}
		}
		o.MaxIterations = max
		return nil
	}
}

// WithETol sets the live-set energy spread (E_max_live - E_min_live) below
// which the engine stops before MaxIterations is reached (spec §4.3 step
// 8). Defaults to 0, which disables spread-based termination in favor of
// MaxIterations / cancellation only.
func WithETol(etol float64) Option {
	return func(o *Options) error {
		if etol < 0 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("etol must be >= 0, got %v", etol)}
		}
		o.ETol = etol
		return nil
	}
}

// WithMCIter sets the number of trial moves per walk. Defaults to 20.
func WithMCIter(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("mciter must be >= 1, got %d", n)}
		}
		o.MCIter = n
		return nil
	}
}

// WithInitialStepSize sets the starting step size fed to the first batch of
// walks, before any adaptation has occurred.
func WithInitialStepSize(s float64) Option {
	return func(o *Options) error {
		if s <= 0 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("initial step size must be > 0, got %v", s)}
		}
		o.InitialStep = s
		return nil
	}
}

// WithMaxStepSize sets the upper clamp on the adapted step size. Required;
// must be >= the initial step size (spec §6: "max_stepsize: real>=stepsize").
func WithMaxStepSize(max float64) Option {
	return func(o *Options) error {
		if max <= 0 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("max step size must be > 0, got %v", max)}
		}
		o.MaxStepSize = max
		return nil
	}
}

// WithStepSizeMin sets the lower clamp on the adapted step size. Optional,
// defaults to 0.
func WithStepSizeMin(min float64) Option {
	return func(o *Options) error {
		if min < 0 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("step size min must be >= 0, got %v", min)}
		}
		o.StepSizeMin = min
		return nil
	}
}

// WithTargetRatio sets the acceptance ratio the step-size adaptation law
// targets. Optional, defaults to 0.5 (spec §6: "target_ratio: real in
// (0,1) default 0.5").
func WithTargetRatio(r float64) Option {
	return func(o *Options) error {
		if r <= 0 || r >= 1 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("target ratio must be in (0,1), got %v", r)}
		}
		o.TargetRatio = r
		return nil
	}
}

// WithBatchTimeout bounds how long a single dispatched batch of walks may
// take before the engine reports a TIMEOUT error (spec §5: "Timeouts are
// per-batch (configurable)"). Optional; 0 (the default) disables the
// timeout.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("batch timeout must be >= 0, got %v", d)}
		}
		o.BatchTimeout = d
		return nil
	}
}

// WithNprocs sets the local dispatcher's worker pool size. Ignored if a
// Dispatcher is supplied explicitly via WithDispatcher.
func WithNprocs(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("nprocs must be >= 1, got %d", n)}
		}
		o.Nprocs = n
		return nil
	}
}

// WithPotential sets the energy function. Required.
func WithPotential(p Potential) Option {
	return func(o *Options) error {
		if p == nil {
			return &EngineError{Code: "CONFIG_ERROR", Message: "potential must not be nil"}
		}
		o.Potential = p
		return nil
	}
}

// WithStepKernel sets the trial move proposal. Required.
func WithStepKernel(s StepKernel) Option {
	return func(o *Options) error {
		if s == nil {
			return &EngineError{Code: "CONFIG_ERROR", Message: "step kernel must not be nil"}
		}
		o.Step = s
		return nil
	}
}

// WithAcceptTests appends configuration-space accept tests, evaluated in
// order after the energy cutoff test.
func WithAcceptTests(tests ...AcceptTest) Option {
	return func(o *Options) error {
		o.AcceptTests = append(o.AcceptTests, tests...)
		return nil
	}
}

// WithEventSinks attaches observers invoked by the walker after every
// trial move. They are shared across every MonteCarloWalker the engine
// constructs, since WalkJob carries no per-job events field on the wire.
func WithEventSinks(sinks ...Observer) Option {
	return func(o *Options) error {
		o.EventSinks = append(o.EventSinks, sinks...)
		return nil
	}
}

// WithDispatcher overrides the default local dispatcher, e.g. with an
// nsrpc.Client for remote execution.
func WithDispatcher(d WalkDispatcher) Option {
	return func(o *Options) error {
		if d == nil {
			return &EngineError{Code: "CONFIG_ERROR", Message: "dispatcher must not be nil"}
		}
		o.Dispatcher = d
		return nil
	}
}

// WithLogger overrides the default slog.Default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return &EngineError{Code: "CONFIG_ERROR", Message: "logger must not be nil"}
		}
		o.Logger = l
		return nil
	}
}

// WithTraceSink attaches the sink that receives the per-iteration energy
// trace and the final live-set energies (spec §4.4, §6). Optional; both
// outputs are dropped if none is set.
func WithTraceSink(s TraceSink) Option {
	return func(o *Options) error {
		o.Trace = s
		return nil
	}
}

// WithMetrics attaches Prometheus instrumentation. Optional.
func WithMetrics(m *nsmetrics.Metrics) Option {
	return func(o *Options) error {
		o.Metrics = m
		return nil
	}
}

// WithTracer attaches OpenTelemetry span emission. Optional.
func WithTracer(t *nstrace.Tracer) Option {
	return func(o *Options) error {
		o.Tracer = t
		return nil
	}
}

func (o *Options) validate() error {
	switch {
	case o.RunID == "":
		return &EngineError{Code: "CONFIG_ERROR", Message: "run id is required (WithRunID)"}
	case o.N == 0:
		return &EngineError{Code: "CONFIG_ERROR", Message: "replica count is required (WithReplicaCount)"}
	case o.MaxIterations == 0:
		return &EngineError{Code: "CONFIG_ERROR", Message: "max iterations is required (WithMaxIterations)"}
	case o.Potential == nil:
		return &EngineError{Code: "CONFIG_ERROR", Message: "potential is required (WithPotential)"}
	case o.Step == nil:
		return &EngineError{Code: "CONFIG_ERROR", Message: "step kernel is required (WithStepKernel)"}
	case o.MaxStepSize == 0:
		return &EngineError{Code: "CONFIG_ERROR", Message: "max step size is required (WithMaxStepSize)"}
	case o.MaxStepSize < o.InitialStep:
		return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("max step size (%v) must be >= initial step size (%v)", o.MaxStepSize, o.InitialStep)}
	case o.StepSizeMin > o.MaxStepSize:
		return &EngineError{Code: "CONFIG_ERROR", Message: fmt.Sprintf("step size min (%v) must be <= max step size (%v)", o.StepSizeMin, o.MaxStepSize)}
	}
	return nil
}
