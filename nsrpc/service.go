package nsrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/hlslxy/nested-sampling/ns"
)

// workerInfo is the registry's view of one nsworker process.
type workerInfo struct {
	id            string
	endpoint      string
	capacity      int
	state         WorkerState
	lastHeartbeat time.Time
}

// DispatchService is the remote counterpart to the local worker pool: it
// accepts worker registrations, tracks liveness via heartbeats, and fans
// incoming batches out across whichever workers are IDLE, reissuing a
// sub-batch to a different worker if the one it was sent to disconnects
// mid-flight. It implements ns.WalkDispatcher directly, so a driver can
// embed one in-process instead of running it as a separate binary.
type DispatchService struct {
	mu               sync.Mutex
	workers          map[string]*workerInfo
	heartbeatTimeout time.Duration
	httpClient       *http.Client
	backoff          backoffPolicy
	logger           *slog.Logger
	rng              *rand.Rand
}

// NewDispatchService builds an empty registry. heartbeatTimeout is how long
// a worker may go without a heartbeat before it is considered
// disconnected.
func NewDispatchService(heartbeatTimeout time.Duration, logger *slog.Logger) *DispatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		workers:          make(map[string]*workerInfo),
		heartbeatTimeout: heartbeatTimeout,
		httpClient:       &http.Client{Timeout: 60 * time.Second},
		backoff:          defaultBackoffPolicy(),
		logger:           logger,
		rng:              rand.New(rand.NewSource(1)), // #nosec G404 -- worker selection jitter only
	}
}

// Register adds or updates a worker in the registry, transitioning it to
// IDLE.
func (s *DispatchService) Register(req RegisterRequest) (RegisterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &workerInfo{id: req.WorkerID, endpoint: req.Endpoint, capacity: req.Capacity, state: StateRegistering, lastHeartbeat: time.Now()}
	if err := w.state.Transition(StateIdle); err != nil {
		return RegisterResponse{}, err
	}
	w.state = StateIdle
	s.workers[req.WorkerID] = w

	return RegisterResponse{WorkerID: req.WorkerID, HeartbeatInterval: 10}, nil
}

// Heartbeat refreshes a worker's liveness timestamp.
func (s *DispatchService) Heartbeat(req HeartbeatRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[req.WorkerID]
	if !ok {
		return ErrUnknownWorker
	}
	w.lastHeartbeat = time.Now()
	return nil
}

// Unregister removes a worker from active rotation.
func (s *DispatchService) Unregister(req UnregisterRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[req.WorkerID]
	if !ok {
		return ErrUnknownWorker
	}
	w.state = StateDisconnected
	delete(s.workers, req.WorkerID)
	return nil
}

// RunBatch implements ns.WalkDispatcher by splitting jobs across the
// currently IDLE workers and reissuing any sub-batch whose worker fails.
func (s *DispatchService) RunBatch(ctx context.Context, jobs []ns.WalkJob) ([]ns.WalkResult, error) {
	results := make([]ns.WalkResult, len(jobs))
	remaining := make([]int, len(jobs))
	for i := range remaining {
		remaining[i] = i
	}

	for len(remaining) > 0 {
		w := s.acquireWorker()
		if w == nil {
			return nil, ErrNoWorkersAvailable
		}

		chunkSize := w.capacity
		if chunkSize <= 0 || chunkSize > len(remaining) {
			chunkSize = len(remaining)
		}
		chunkIdx := remaining[:chunkSize]
		remaining = remaining[chunkSize:]

		chunkJobs := make([]ns.WalkJob, len(chunkIdx))
		for i, idx := range chunkIdx {
			chunkJobs[i] = jobs[idx]
		}

		res, err := s.executeOn(ctx, w, chunkJobs)
		s.releaseWorker(w.id)
		if err != nil {
			s.logger.Warn("nsrpc: worker batch failed, reissuing", "worker_id", w.id, "error", err)
			s.markDisconnected(w.id)
			remaining = append(chunkIdx, remaining...)
			continue
		}
		if len(res) != len(chunkJobs) {
			return nil, fmt.Errorf("nsrpc: worker %s returned %d results for %d jobs", w.id, len(res), len(chunkJobs))
		}
		for i, idx := range chunkIdx {
			results[idx] = res[i]
		}
	}

	return results, nil
}

func (s *DispatchService) acquireWorker() *workerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, w := range s.workers {
		if w.state == StateIdle && now.Sub(w.lastHeartbeat) < s.heartbeatTimeout {
			w.state = StateBusy
			return w
		}
	}
	return nil
}

func (s *DispatchService) releaseWorker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[id]; ok && w.state == StateBusy {
		w.state = StateIdle
	}
}

func (s *DispatchService) markDisconnected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workers, id)
}

func (s *DispatchService) executeOn(ctx context.Context, w *workerInfo, jobs []ns.WalkJob) ([]ns.WalkResult, error) {
	body, err := json.Marshal(SubmitRequest{Jobs: jobs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("nsrpc: worker %s returned %d: %s", w.id, resp.StatusCode, errResp.Message)
	}

	var sub SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, err
	}
	return sub.Results, nil
}

// HTTPHandlers returns the mux routes this service exposes to nsworker
// clients and to the driver submitting batches.
func (s *DispatchService) HTTPHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/register":   s.handleRegister,
		"/heartbeat":  s.handleHeartbeat,
		"/unregister": s.handleUnregister,
		"/submit":     s.handleSubmit,
	}
}

func (s *DispatchService) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "CONFIG_ERROR", err.Error())
		return
	}
	resp, err := s.Register(req)
	if err != nil {
		writeError(w, http.StatusConflict, "CONFIG_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DispatchService) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "CONFIG_ERROR", err.Error())
		return
	}
	if err := s.Heartbeat(req); err != nil {
		writeError(w, http.StatusNotFound, "CONFIG_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DispatchService) handleUnregister(w http.ResponseWriter, r *http.Request) {
	var req UnregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "CONFIG_ERROR", err.Error())
		return
	}
	if err := s.Unregister(req); err != nil {
		writeError(w, http.StatusNotFound, "CONFIG_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DispatchService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "CONFIG_ERROR", err.Error())
		return
	}
	results, err := s.RunBatch(r.Context(), req.Jobs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "TRANSPORT_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{Results: results})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
