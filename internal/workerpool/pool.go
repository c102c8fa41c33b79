// Package workerpool implements the bounded concurrency harness
// shared by the build driver and the search kernel: a scoped fan-out of
// independent, CPU-bound tasks joined at scope exit, with results
// carried over an unordered channel.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool bounds concurrent task execution to a fixed limit and collects
// results from an unordered channel.
type Pool struct {
	limit int
}

// New returns a Pool that runs at most limit tasks concurrently. A
// limit <= 0 means unbounded.
func New(limit int) *Pool {
	return &Pool{limit: limit}
}

// Run submits each task to the pool and returns their results in
// arrival order, which has no relationship to submission order.
// A task that returns an error is logged by the caller via the error
// return of the task itself; Run never aborts early on a task error —
// callers that want fail-fast behaviour should return early from their
// own task closures and handle it in the result.
func Run[T any](ctx context.Context, pool *Pool, tasks []func(context.Context) (T, error)) []T {
	results := make(chan T, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if pool.limit > 0 {
		g.SetLimit(pool.limit)
	}

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			result, err := task(gctx)
			if err != nil {
				return nil
			}
			results <- result
			return nil
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	out := make([]T, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	return out
}
