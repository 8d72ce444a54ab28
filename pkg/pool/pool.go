// Package pool provides a bounded-concurrency worker pool for independent
// I/O-bound tasks. Each input item gets exactly one result slot, so callers
// can correlate outcomes by index regardless of completion order.
package pool

import (
	"context"
	"sync"
)

// Result holds the outcome of one item. Exactly one of Value or Err is
// meaningful; Err is nil on success.
type Result[T any] struct {
	Value T
	Err   error
}

// Failed reports whether the item's task returned an error.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Map runs fn over items with at most limit tasks in flight at any time.
// Limits below 1 are treated as 1.
//
// The returned slice has one slot per item, in input order. One item's
// failure never cancels its siblings; the only way to stop the pool early
// is canceling ctx, in which case unstarted items record the context error.
func Map[S, T any](ctx context.Context, limit int, items []S, fn func(ctx context.Context, index int, item S) (T, error)) []Result[T] {
	results := make([]Result[T], len(items))
	run(ctx, limit, len(items), func(i int) {
		results[i].Value, results[i].Err = fn(ctx, i, items[i])
	}, func(i int) {
		results[i].Err = ctx.Err()
	})
	return results
}

// MapFailFast is Map with fail-fast semantics: the first task error cancels
// the remaining work and is returned alongside the partial results. Items
// that never started record the cancellation in their slot.
func MapFailFast[S, T any](ctx context.Context, limit int, items []S, fn func(ctx context.Context, index int, item S) (T, error)) ([]Result[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once  sync.Once
		first error
	)
	results := make([]Result[T], len(items))
	run(ctx, limit, len(items), func(i int) {
		v, err := fn(ctx, i, items[i])
		results[i] = Result[T]{Value: v, Err: err}
		if err != nil {
			once.Do(func() {
				first = err
				cancel()
			})
		}
	}, func(i int) {
		results[i].Err = ctx.Err()
	})
	return results, first
}

// FirstError returns the first non-nil error in slot order, or nil.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// run schedules n tasks through a semaphore of the given size. Tasks that
// cannot start because ctx is already done are handed to skip instead.
func run(ctx context.Context, limit, n int, task func(int), skip func(int)) {
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := range n {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			skip(i)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			task(i)
		}()
	}
	wg.Wait()
}
