// Command nsrun drives a nested sampling run from the command line: it
// builds a Potential, a dispatcher (local worker pool or remote dispatch
// service), optional metrics/tracing/persistence, and runs the engine to
// completion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hlslxy/nested-sampling/ns"
	"github.com/hlslxy/nested-sampling/nsmetrics"
	"github.com/hlslxy/nested-sampling/nspotential"
	"github.com/hlslxy/nested-sampling/nsrpc"
	"github.com/hlslxy/nested-sampling/nsstore"
	"github.com/hlslxy/nested-sampling/nstrace"
)

// Exit codes follow spec §6/§7's engine error taxonomy: a walker fatal
// (invariant violation, potential failure) gets a distinct code from a
// dispatcher/transport fatal, which in turn is distinct from a timeout.
const (
	exitOK              = 0
	exitConfigError     = 1
	exitWalkerFatal     = 2
	exitDispatcherFatal = 3
	exitTimeout         = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		runID          = flag.String("run-id", "", "identifier for this run, used to derive deterministic seeds (required)")
		label          = flag.String("label", "ns-run", "output label: writes <label>.energies and <label>.replicas_final")
		n              = flag.Int("n", 100, "live replica set size")
		k              = flag.Int("k", 1, "replicas discarded and reseeded per iteration")
		maxIterations  = flag.Int("max-iterations", 10000, "maximum iterations before stopping")
		etol           = flag.Float64("etol", 1e-3, "stop when (E_max_live - E_min_live) drops below this")
		mciter         = flag.Int("mciter", 20, "trial moves per walk")
		initialStep    = flag.Float64("initial-step", 0.1, "initial step size")
		maxStepSize    = flag.Float64("max-stepsize", 1.0, "upper clamp on the adapted step size")
		stepSizeMin    = flag.Float64("stepsize-min", 0, "lower clamp on the adapted step size")
		targetRatio    = flag.Float64("target-ratio", 0.5, "acceptance ratio the step-size adaptation targets")
		batchTimeout   = flag.Duration("batch-timeout", 0, "if > 0, fail a batch of walks that runs longer than this")
		nprocs         = flag.Int("nprocs", 1, "local worker pool size (ignored if --dispatcher-endpoint is set)")
		potentialName  = flag.String("potential", "harmonic", "potential to sample: harmonic")
		dim            = flag.Int("dim", 2, "dimensionality of the potential")
		extent         = flag.Float64("extent", 5.0, "half-width of the initial configuration box")
		boxHalfWidth   = flag.Float64("box", 0, "if > 0, reject configurations outside [-box, box]^dim")
		dispatcherAddr = flag.String("dispatcher-endpoint", "", "remote dispatch service base URL; local pool is used if empty")
		storeKind      = flag.String("store", "file", "energy trace store: file, memory, sqlite, mysql, none")
		storePath      = flag.String("store-path", "", "path/DSN for sqlite/mysql stores (ignored for file/memory/none)")
		metricsAddr    = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
		traceEnabled   = flag.Bool("trace", false, "enable OpenTelemetry span emission for iterations and walk batches")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *runID == "" {
		logger.Error("nsrun: --run-id is required")
		return exitConfigError
	}

	potential, err := buildPotential(*potentialName, *dim, *extent)
	if err != nil {
		logger.Error("nsrun: building potential", "error", err)
		return exitConfigError
	}

	var acceptTests ns.AcceptTests
	if *boxHalfWidth > 0 {
		acceptTests = append(acceptTests, nspotential.NewBox(*boxHalfWidth))
	}

	registry := prometheus.NewRegistry()
	metrics := nsmetrics.New(registry)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, registry, logger)
	}

	store, closeStore, err := buildStore(*storeKind, *label, *storePath, *runID)
	if err != nil {
		logger.Error("nsrun: opening store", "error", err)
		return exitConfigError
	}
	defer closeStore()

	opts := []ns.Option{
		ns.WithRunID(*runID),
		ns.WithReplicaCount(*n, *k),
		ns.WithMaxIterations(*maxIterations),
		ns.WithETol(*etol),
		ns.WithMCIter(*mciter),
		ns.WithInitialStepSize(*initialStep),
		ns.WithMaxStepSize(*maxStepSize),
		ns.WithStepSizeMin(*stepSizeMin),
		ns.WithTargetRatio(*targetRatio),
		ns.WithBatchTimeout(*batchTimeout),
		ns.WithNprocs(*nprocs),
		ns.WithPotential(potential),
		ns.WithStepKernel(ns.StepKernelFunc(nspotential.UniformStep)),
		ns.WithAcceptTests(acceptTests...),
		ns.WithLogger(logger),
		ns.WithMetrics(metrics),
	}
	if store != nil {
		opts = append(opts, ns.WithTraceSink(store))
	}
	if *traceEnabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		opts = append(opts, ns.WithTracer(nstrace.New(tp)))
	}
	if *dispatcherAddr != "" {
		opts = append(opts, ns.WithDispatcher(nsrpc.NewClient(*dispatcherAddr, logger)))
	}

	engine, err := ns.NewEngine(opts...)
	if err != nil {
		logger.Error("nsrun: constructing engine", "error", err)
		return exitCodeFor(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := engine.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("nsrun: run cancelled")
			return exitOK
		}
		logger.Error("nsrun: run failed", "error", err)
		return exitCodeFor(err)
	}

	logger.Info("nsrun: run complete", "iterations", result.Iterations, "stopped", result.Stopped)
	fmt.Printf("iterations=%d stopped=%s\n", result.Iterations, result.Stopped)
	return exitOK
}

func buildPotential(name string, dim int, extent float64) (ns.Potential, error) {
	switch name {
	case "harmonic":
		return nspotential.NewHarmonic(dim, extent), nil
	default:
		return nil, fmt.Errorf("nsrun: unknown potential %q", name)
	}
}

// buildStore constructs the TraceSink responsible for the run's energy
// trace output. "file" (the default) writes the two flat files spec
// §4.4/§6 mandate, "<label>.energies" and "<label>.replicas_final";
// sqlite/mysql persist the same trace to a database for multi-run
// analysis instead, and write no flat files.
func buildStore(kind, label, path, runID string) (nsstore.Store, func(), error) {
	noop := func() {}
	switch kind {
	case "none":
		return nil, noop, nil
	case "memory":
		s := nsstore.NewMemory()
		return s, func() { _ = s.Close() }, nil
	case "file":
		s, err := nsstore.OpenFile(label)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "sqlite":
		if path == "" {
			return nil, noop, fmt.Errorf("nsrun: --store-path is required for --store=sqlite")
		}
		s, err := nsstore.OpenSQLite(path)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "mysql":
		if path == "" {
			return nil, noop, fmt.Errorf("nsrun: --store-path (DSN) is required for --store=mysql")
		}
		s, err := nsstore.OpenMySQL(path, runID)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("nsrun: unknown store kind %q", kind)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("nsrun: metrics server stopped", "error", err)
	}
}

// exitCodeFor maps an EngineError to the exit code spec §6/§7 assigns to
// its class: walker faults (invariant violations, potential failures)
// exit 2, dispatcher/transport faults exit 3, timeouts exit 4.
func exitCodeFor(err error) int {
	var engineErr *ns.EngineError
	if errors.As(err, &engineErr) {
		switch engineErr.Code {
		case "CONFIG_ERROR":
			return exitConfigError
		case "POTENTIAL_ERROR", "INVARIANT_VIOLATION":
			return exitWalkerFatal
		case "TRANSPORT_ERROR":
			return exitDispatcherFatal
		case "TIMEOUT":
			return exitTimeout
		}
	}
	return exitConfigError
}
