package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// WorkerFunc processes one item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// ProgressFunc is called after each item finishes, successfully or not.
type ProgressFunc func(done, total int)

// Run processes items concurrently with numWorkers goroutines and returns the errors
// the workers produced, in no particular order.
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []error {
	return RunWithProgress(ctx, items, numWorkers, workerFunc, nil)
}

// RunWithProgress is Run with a progress callback. numWorkers is clamped to
// [1, len(items)]. Items not started before ctx is cancelled are skipped and
// ctx.Err() is reported once.
func RunWithProgress[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T], progress ProgressFunc) []error {
	if len(items) == 0 {
		return nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(items) {
		numWorkers = len(items)
	}

	var (
		wg      sync.WaitGroup
		done    atomic.Int64
		skipped atomic.Bool
	)
	taskChan := make(chan T, numWorkers)
	errChan := make(chan error, len(items))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range taskChan {
				if ctx.Err() != nil {
					skipped.Store(true)
					continue
				}
				if err := workerFunc(ctx, item); err != nil {
					errChan <- err
				}
				n := done.Add(1)
				if progress != nil {
					progress(int(n), len(items))
				}
			}
		}()
	}

OUT:
	for _, item := range items {
		select {
		case taskChan <- item:
		case <-ctx.Done():
			skipped.Store(true)
			break OUT
		}
	}
	close(taskChan)

	wg.Wait()
	close(errChan)

	var allErrors []error
	for err := range errChan {
		allErrors = append(allErrors, err)
	}
	if skipped.Load() {
		allErrors = append(allErrors, ctx.Err())
	}
	return allErrors
}
