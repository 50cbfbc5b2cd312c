package ns

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// LocalDispatcher runs walk jobs on a bounded in-process worker pool (C6 in
// the design). It is the default dispatcher for single-node runs.
type LocalDispatcher struct {
	walker *MonteCarloWalker
	nprocs int
	logger *slog.Logger
}

// NewLocalDispatcher builds a dispatcher that runs at most nprocs jobs
// concurrently against walker. nprocs <= 0 means unbounded (one goroutine
// per job).
func NewLocalDispatcher(walker *MonteCarloWalker, nprocs int, logger *slog.Logger) *LocalDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalDispatcher{walker: walker, nprocs: nprocs, logger: logger}
}

// RunBatch implements WalkDispatcher. It fans the batch out across the
// pool and collects results into a slice indexed the same as jobs; the
// first job to return an error cancels the rest via the errgroup's shared
// context.
func (d *LocalDispatcher) RunBatch(ctx context.Context, jobs []WalkJob) ([]WalkResult, error) {
	results := make([]WalkResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if d.nprocs > 0 {
		g.SetLimit(d.nprocs)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := d.walker.Walk(gctx, job)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Error("ns: local dispatch batch failed", "error", err, "batch_size", len(jobs))
		return nil, err
	}
	return results, nil
}
