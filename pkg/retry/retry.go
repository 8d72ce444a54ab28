// Package retry provides a reusable retry policy for remote calls:
// a bounded number of attempts with exponential backoff, capped at a
// maximum delay and jittered to avoid thundering-herd against the
// remote service.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/googleapis/gax-go/v2"
)

// DefaultInitialDelay is the delay before the second attempt when the
// policy does not specify one.
const DefaultInitialDelay = 500 * time.Millisecond

// Policy describes how an operation is retried. The zero value performs
// a single attempt with no retries.
type Policy struct {
	// Attempts is the total attempt budget, including the first call.
	// Values below 1 are treated as 1.
	Attempts int

	// MaxDelay caps the inter-attempt delay.
	MaxDelay time.Duration

	// InitialDelay is the delay after the first failure. Defaults to
	// DefaultInitialDelay.
	InitialDelay time.Duration

	// Retryable decides whether an error is worth another attempt.
	// If nil, every error is retried until the budget is exhausted.
	Retryable func(error) bool
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

func (p Policy) backoff() gax.Backoff {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	return gax.Backoff{
		Initial:    initial,
		Max:        p.MaxDelay,
		Multiplier: 2,
	}
}

// Do runs fn under the policy. It returns nil on the first success, the
// last error once the attempt budget is exhausted or the error is not
// retryable, and the context error if ctx is done while waiting.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := DoValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		last error
	)
	bo := p.backoff()
	budget := p.attempts()
	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if p.Retryable != nil && !p.Retryable(err) {
			slog.Debug("retry: giving up on non-retryable error", "op", op, "attempt", attempt, "err", err)
			return zero, err
		}
		if attempt == budget {
			break
		}
		slog.Debug("retry: attempt failed", "op", op, "attempt", attempt, "budget", budget, "err", err)
		if err := gax.Sleep(ctx, bo.Pause()); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("retry: %s failed after %d attempts: %w", op, budget, last)
}
