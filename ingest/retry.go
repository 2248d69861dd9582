package ingest

import (
	"context"
	"time"

	"github.com/fwojciec/newsgrab"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d. It returns ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BackoffDelays returns the waits between maxAttempts attempts, starting at
// base and doubling each time: 3 attempts at 1s give 1s, 2s. A single
// attempt yields an empty, non-nil slice.
func BackoffDelays(maxAttempts int, base time.Duration) []time.Duration {
	if maxAttempts <= 1 {
		return []time.Duration{}
	}
	delays := make([]time.Duration, maxAttempts-1)
	for i := range delays {
		delays[i] = base << i
	}
	return delays
}

// DefaultRetryDelays returns the backoff for three attempts: 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return BackoffDelays(3, time.Second)
}

// Retry calls fn until it succeeds, making len(delays)+1 attempts and
// waiting delays[i] after the i-th failure. onRetry, if non-nil, is
// called before each wait with the number of the next attempt. An ECONFLICT
// error is returned immediately.
func Retry(ctx context.Context, delays []time.Duration, sleep SleepFunc, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if sleep == nil {
		sleep = Sleep
	}
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if newsgrab.ErrorCode(err) == newsgrab.ECONFLICT || attempt >= maxAttempts-1 {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onRetry != nil {
			onRetry(attempt+2, err)
		}
		if err := sleep(ctx, delays[attempt]); err != nil {
			return err
		}
	}
	return lastErr
}
