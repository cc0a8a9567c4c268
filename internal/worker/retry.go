package worker

import (
	"context"
	"fmt"
	"time"
)

// retryPolicy bounds an external call: retries extra attempts after the
// first, each attempt under its own timeout, a fixed pause in between.
type retryPolicy struct {
	name       string
	retries    int
	perAttempt time.Duration
	backoff    time.Duration
}

type retryExhaustedError struct {
	call     string
	attempts int
	last     error
}

func (e *retryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.call, e.attempts, e.last)
}

func (e *retryExhaustedError) Unwrap() error { return e.last }

// runWithRetry executes fn under the policy. onRetry fires before every
// re-attempt with the call name, for retry accounting. A canceled parent
// context stops the loop immediately.
func runWithRetry[T any](ctx context.Context, policy retryPolicy, onRetry func(string), fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.retries; attempt++ {
		if attempt > 0 {
			if onRetry != nil {
				onRetry(policy.name)
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.backoff):
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if policy.perAttempt > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.perAttempt)
		}
		result, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, &retryExhaustedError{
		call:     policy.name,
		attempts: policy.retries + 1,
		last:     lastErr,
	}
}
