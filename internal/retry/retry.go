// Package retry wraps a single fallible operation with a bounded
// retry/backoff policy. Every multi-step network call in the pipeline runs
// under one of its policies.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExceeded is returned when the attempt count or deadline runs out
// before the operation succeeds. It wraps the last operation error.
var ErrBudgetExceeded = errors.New("retry budget exceeded")

// Policy bounds the retries of a single operation.
//
// Exactly one of Deadline or MaxAttempts should be set. With Deadline the
// operation is retried until the wall-clock budget measured from the first
// attempt is spent; with MaxAttempts it is invoked at most that many times.
type Policy struct {
	Deadline    time.Duration
	MaxAttempts int
	// Delay is the fixed spacing between attempts.
	Delay time.Duration
	// Retryable classifies failures. A false return aborts immediately with
	// the operation's own error.
	Retryable func(error) bool
}

func (p Policy) validate() error {
	if p.Deadline <= 0 && p.MaxAttempts <= 0 {
		return fmt.Errorf("retry: policy needs a deadline or an attempt limit")
	}
	if p.Retryable == nil {
		return fmt.Errorf("retry: policy needs a retryable predicate")
	}
	return nil
}

// Do runs op under the policy and returns its first successful result.
//
// Non-retryable failures propagate unchanged after a single attempt. When the
// budget runs out the last error is wrapped in ErrBudgetExceeded. Context
// cancellation is honored between attempts and during delays.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.validate(); err != nil {
		return zero, err
	}

	start := time.Now()
	attempt := 0
	var lastErr error

	for {
		attempt++

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !p.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrBudgetExceeded, attempt, lastErr)
		}
		if p.Deadline > 0 && time.Since(start)+p.Delay >= p.Deadline {
			return zero, fmt.Errorf("%w after %s: %w", ErrBudgetExceeded, p.Deadline, lastErr)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}
}
