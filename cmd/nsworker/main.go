// Command nsworker runs a standalone walk execution server: it registers
// with a dispatch service, serves /execute over HTTP, and sends periodic
// heartbeats until terminated.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hlslxy/nested-sampling/ns"
	"github.com/hlslxy/nested-sampling/nspotential"
	"github.com/hlslxy/nested-sampling/nsrpc"
)

func main() {
	if err := run(); err != nil {
		slog.Error("nsworker: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr       = flag.String("listen", ":9090", "address to serve /execute on")
		advertiseAddr    = flag.String("advertise", "", "address other hosts can reach this worker at (defaults to listen)")
		dispatcherAddr   = flag.String("dispatcher", "", "dispatch service base URL to register with")
		workerID         = flag.String("worker-id", "", "unique id for this worker (defaults to hostname:pid)")
		capacity         = flag.Int("capacity", 8, "max jobs this worker accepts per batch")
		potentialName    = flag.String("potential", "harmonic", "potential to evaluate: harmonic")
		dim              = flag.Int("dim", 2, "dimensionality of the potential")
		extent           = flag.Float64("extent", 5.0, "half-width of the initial configuration box")
		mciter           = flag.Int("mciter", 20, "trial moves per walk job")
		heartbeatSeconds = flag.Int("heartbeat-seconds", 5, "seconds between heartbeats to the dispatcher")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if *workerID == "" {
		host, _ := os.Hostname()
		*workerID = fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	advertise := *advertiseAddr
	if advertise == "" {
		advertise = "http://localhost" + *listenAddr
	}

	potential, err := buildPotential(*potentialName, *dim, *extent)
	if err != nil {
		return err
	}
	walker := ns.NewMonteCarloWalker(potential, ns.StepKernelFunc(nspotential.UniformStep), nil, *mciter, nil, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/execute", executeHandler(walker, logger))

	server := &http.Server{Addr: *listenAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	if *dispatcherAddr != "" {
		if err := registerWithDispatcher(ctx, *dispatcherAddr, *workerID, advertise, *capacity); err != nil {
			return fmt.Errorf("nsworker: registration failed: %w", err)
		}
		go heartbeatLoop(ctx, *dispatcherAddr, *workerID, time.Duration(*heartbeatSeconds)*time.Second, logger)
	}

	logger.Info("nsworker: listening", "addr", *listenAddr, "worker_id", *workerID)

	select {
	case <-ctx.Done():
		logger.Info("nsworker: shutting down")
		if *dispatcherAddr != "" {
			_ = unregisterFromDispatcher(context.Background(), *dispatcherAddr, *workerID)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildPotential(name string, dim int, extent float64) (ns.Potential, error) {
	switch name {
	case "harmonic":
		return nspotential.NewHarmonic(dim, extent), nil
	default:
		return nil, fmt.Errorf("nsworker: unknown potential %q", name)
	}
}

func executeHandler(walker *ns.MonteCarloWalker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req nsrpc.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		results := make([]ns.WalkResult, len(req.Jobs))
		for i, job := range req.Jobs {
			res, err := walker.Walk(r.Context(), job)
			if err != nil {
				logger.Error("nsworker: walk failed", "error", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			results[i] = res
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(nsrpc.SubmitResponse{Results: results})
	}
}

func registerWithDispatcher(ctx context.Context, dispatcherAddr, workerID, advertise string, capacity int) error {
	body, err := json.Marshal(nsrpc.RegisterRequest{WorkerID: workerID, Endpoint: advertise, Capacity: capacity})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dispatcherAddr+"/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nsworker: dispatcher rejected registration: %d", resp.StatusCode)
	}
	return nil
}

func heartbeatLoop(ctx context.Context, dispatcherAddr, workerID string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			body, _ := json.Marshal(nsrpc.HeartbeatRequest{WorkerID: workerID})
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, dispatcherAddr+"/heartbeat", bytes.NewReader(body))
			if err != nil {
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				logger.Warn("nsworker: heartbeat failed", "error", err)
				continue
			}
			resp.Body.Close()
		}
	}
}

func unregisterFromDispatcher(ctx context.Context, dispatcherAddr, workerID string) error {
	body, err := json.Marshal(nsrpc.UnregisterRequest{WorkerID: workerID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dispatcherAddr+"/unregister", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
