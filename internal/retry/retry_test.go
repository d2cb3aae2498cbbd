package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	}

	result, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}, op)

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonRetryableAbortsImmediately(t *testing.T) {
	calls := 0
	op := func(context.Context) (int, error) {
		calls++
		return 0, errFatal
	}

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}, op)

	if !errors.Is(err, errFatal) {
		t.Fatalf("err = %v, want errFatal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_AttemptBudgetExhausted(t *testing.T) {
	calls := 0
	op := func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	}

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		Retryable:   func(error) bool { return true },
	}, op)

	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("err should wrap the last operation error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_DeadlineExhausted(t *testing.T) {
	op := func(context.Context) (int, error) {
		return 0, errTransient
	}

	start := time.Now()
	_, err := Do(context.Background(), Policy{
		Deadline:  50 * time.Millisecond,
		Delay:     10 * time.Millisecond,
		Retryable: func(error) bool { return true },
	}, op)

	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("took %s, deadline not honored", elapsed)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	}

	_, err := Do(ctx, Policy{
		MaxAttempts: 10,
		Delay:       time.Second,
		Retryable:   func(error) bool { return true },
	}, op)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_InvalidPolicy(t *testing.T) {
	_, err := Do(context.Background(), Policy{}, func(context.Context) (int, error) {
		t.Fatal("op should not run under an invalid policy")
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected error for policy without budget or predicate")
	}
}
