package workerpool

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestRunCollectsAllSuccessfulResults(t *testing.T) {
	pool := New(4)
	tasks := make([]func(context.Context) (int, error), 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		tasks = append(tasks, func(ctx context.Context) (int, error) {
			return i, nil
		})
	}

	results := Run(context.Background(), pool, tasks)
	sort.Ints(results)

	if len(results) != 20 {
		t.Fatalf("got %d results, want 20", len(results))
	}
	for i, v := range results {
		if v != i {
			t.Fatalf("results[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestRunOmitsFailedTasksWithoutAborting(t *testing.T) {
	pool := New(2)
	tasks := []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, errors.New("boom") },
		func(ctx context.Context) (int, error) { return 3, nil },
	}

	results := Run(context.Background(), pool, tasks)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestRunUnboundedWithZeroLimit(t *testing.T) {
	pool := New(0)
	tasks := []func(context.Context) (int, error){
		func(ctx context.Context) (int, error) { return 1, nil },
	}
	results := Run(context.Background(), pool, tasks)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}
