package ai

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const maxBackoff = 30 * time.Second

// IsRetryable reports whether a failed call may succeed when repeated.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrUnsupported):
		return false
	}
	return true
}

// Backoff returns the wait before retry number attempt (0-based): base doubled
// per attempt, capped, plus up to 50% jitter.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
