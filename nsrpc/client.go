package nsrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/hlslxy/nested-sampling/ns"
)

// Client is a ns.WalkDispatcher that forwards batches to a remote dispatch
// service over JSON-over-HTTP, retrying transient failures with
// exponential backoff.
type Client struct {
	endpoint   string
	httpClient *http.Client
	backoff    backoffPolicy
	maxRetries int
	logger     *slog.Logger
	rng        *rand.Rand
}

// NewClient builds a Client pointed at a dispatch service's /submit
// endpoint, e.g. "http://dispatcher.internal:8080".
func NewClient(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		backoff:    defaultBackoffPolicy(),
		maxRetries: 5,
		logger:     logger,
		rng:        rand.New(rand.NewSource(1)), // #nosec G404 -- jitter only, not security-sensitive
	}
}

// RunBatch implements ns.WalkDispatcher.
func (c *Client) RunBatch(ctx context.Context, jobs []ns.WalkJob) ([]ns.WalkResult, error) {
	body, err := json.Marshal(SubmitRequest{Jobs: jobs})
	if err != nil {
		return nil, fmt.Errorf("nsrpc: encode submit request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.computeBackoff(attempt-1, c.rng)
			c.logger.Warn("nsrpc: retrying batch submit", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		results, err := c.submitOnce(ctx, body)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("nsrpc: batch submit failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) submitOnce(ctx context.Context, body []byte) ([]ns.WalkResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/submit", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nsrpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if resp.StatusCode >= 500 {
			return nil, &transportError{err: fmt.Errorf("nsrpc: dispatch service returned %d: %s", resp.StatusCode, errResp.Message)}
		}
		return nil, fmt.Errorf("nsrpc: dispatch service returned %d: %s", resp.StatusCode, errResp.Message)
	}

	var sub SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("nsrpc: decode submit response: %w", err)
	}
	return sub.Results, nil
}

// transportError marks an error as safe to retry: anything that prevented
// the request from completing rather than a well-formed rejection.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	_, ok := err.(*transportError)
	return ok
}
