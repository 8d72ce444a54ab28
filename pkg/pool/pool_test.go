package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}

	results := Map(context.Background(), 4, items, func(_ context.Context, i, item int) (string, error) {
		// Finish later items first to prove slots are index-addressed.
		time.Sleep(time.Duration(len(items)-i) * time.Millisecond)
		return fmt.Sprintf("item-%d", item), nil
	})

	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("results[%d] error: %v", i, r.Err)
		}
		if want := fmt.Sprintf("item-%d", i); r.Value != want {
			t.Errorf("results[%d] = %q, want %q", i, r.Value, want)
		}
	}
}

func TestMap_FailureDoesNotAbortSiblings(t *testing.T) {
	boom := errors.New("boom")
	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}

	results := Map(context.Background(), 3, items, func(_ context.Context, i, _ int) (int, error) {
		if i%3 == 0 {
			return 0, boom
		}
		return i * 10, nil
	})

	var failed, ok int
	for i, r := range results {
		if i%3 == 0 {
			if !r.Failed() {
				t.Errorf("results[%d] should have failed", i)
			}
			failed++
			continue
		}
		if r.Failed() {
			t.Errorf("results[%d] error: %v", i, r.Err)
		}
		if r.Value != i*10 {
			t.Errorf("results[%d] = %d, want %d", i, r.Value, i*10)
		}
		ok++
	}
	if failed != 4 || ok != 6 {
		t.Errorf("failed = %d, ok = %d, want 4 and 6", failed, ok)
	}
}

func TestMap_BoundsInFlight(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	Map(context.Background(), limit, make([]struct{}, 20), func(context.Context, int, struct{}) (struct{}, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return struct{}{}, nil
	})

	if p := peak.Load(); p > limit {
		t.Errorf("peak in-flight = %d, want <= %d", p, limit)
	}
}

func TestMapFailFast_CancelsRemaining(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	var mu sync.Mutex
	canceled := 0

	results, err := MapFailFast(context.Background(), 1, make([]struct{}, 8), func(ctx context.Context, i int, _ struct{}) (int, error) {
		started.Add(1)
		if i == 1 {
			return 0, boom
		}
		if err := ctx.Err(); err != nil {
			mu.Lock()
			canceled++
			mu.Unlock()
			return 0, err
		}
		return i, nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(results) != 8 {
		t.Fatalf("len(results) = %d, want 8", len(results))
	}
	if !results[1].Failed() {
		t.Error("results[1] should carry the failure")
	}
	// With concurrency 1 the items after the failure must not run to
	// completion: they are either skipped or observe cancellation.
	for i := 2; i < 8; i++ {
		if !results[i].Failed() {
			t.Errorf("results[%d] should be canceled, got value %d", i, results[i].Value)
		}
	}
}

func TestFirstError(t *testing.T) {
	boom := errors.New("boom")
	results := []Result[int]{{Value: 1}, {Err: boom}, {Err: errors.New("later")}}
	if err := FirstError(results); !errors.Is(err, boom) {
		t.Errorf("FirstError = %v, want %v", err, boom)
	}
	if err := FirstError([]Result[int]{{Value: 1}}); err != nil {
		t.Errorf("FirstError = %v, want nil", err)
	}
}
