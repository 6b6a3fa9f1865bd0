package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"phaselock/domain/run"
)

// Sweep runs independent optimizations for each requested mode count, at
// most parallel at a time. Results come back in input order. The first
// error cancels nothing already running but is reported after all workers
// drain; successful results are kept alongside it.
func (o *Orchestrator) Sweep(ctx context.Context, modeCounts []int, parallel int64) ([]*run.Result, error) {
	if parallel < 1 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(parallel)
	results := make([]*run.Result, len(modeCounts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for idx, n := range modeCounts {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(idx, n int) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := o.Run(ctx, n)
			mu.Lock()
			defer mu.Unlock()
			results[idx] = result
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(idx, n)
	}

	wg.Wait()
	return results, firstErr
}
