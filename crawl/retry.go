package crawl

import (
	"context"
	"time"
)

// DefaultConnectDelays returns the waits between browser connection
// attempts: 2s, then 4s.
func DefaultConnectDelays() []time.Duration {
	return []time.Duration{2 * time.Second, 4 * time.Second}
}

// DefaultRetryDelays returns the waits between page processing attempts:
// 1s, then 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second}
}

// Retry calls fn until it succeeds, returns an error that retryable
// rejects, or the delays run out. It makes len(delays)+1 attempts. A nil
// retryable retries every error. onRetry, if set, is called with the
// 1-based number of the failed attempt before each wait.
func Retry[T any](
	ctx context.Context,
	delays []time.Duration,
	retryable func(error) bool,
	onRetry func(attempt int, err error),
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 || (retryable != nil && !retryable(err)) {
			break
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return zero, lastErr
}
