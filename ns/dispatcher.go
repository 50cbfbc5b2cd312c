package ns

import "context"

// WalkDispatcher executes a batch of walk jobs and returns their results in
// the same order, or a terminal error (C6 in the design). Implementations
// may run jobs locally (LocalDispatcher) or forward them to remote workers
// (nsrpc.Client); the engine is indifferent to which.
//
// RunBatch must return len(jobs) results on success, in the same order as
// jobs. A dispatcher that cannot complete every job in the batch must
// return a non-nil error and no partial results: the engine never mixes
// partial batches into its replica set.
type WalkDispatcher interface {
	RunBatch(ctx context.Context, jobs []WalkJob) ([]WalkResult, error)
}
