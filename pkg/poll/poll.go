package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a condition was not met within the wait
// budget, whether that budget was a deadline (UntilTimeout) or an attempt
// count (UntilAttempts). Callers distinguish it from cancellation of their
// own context, which is passed through unchanged.
var ErrTimeout = errors.New("timed out waiting for condition")

// Condition reports whether the awaited state has been reached. It is
// evaluated repeatedly; returning a non-nil error aborts the poll
// immediately. Conditions that treat read failures as "not yet" should
// log them and return (false, nil).
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then once per interval until it
// reports true, returns an error, or ctx is done. The wait between samples
// suspends on a ticker; it never spins. interval must be > 0.
func Until(ctx context.Context, interval time.Duration, cond Condition) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// UntilTimeout bounds Until with its own deadline. When the deadline
// elapses before the condition holds it returns ErrTimeout; cancellation
// of the parent context is returned as the parent's error so callers can
// tell an external abort from an exhausted wait.
func UntilTimeout(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := Until(waitCtx, interval, cond)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

// UntilAttempts evaluates cond up to attempts times with a fixed backoff
// between evaluations, returning ErrTimeout once the budget is exhausted.
// Used where the wait is better expressed as "N tries" than as a duration,
// such as confirming a backend detach. attempts must be >= 1.
func UntilAttempts(ctx context.Context, attempts int, backoff time.Duration, cond Condition) error {
	for i := 0; i < attempts; i++ {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		// No point sleeping after the final attempt.
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return ErrTimeout
}
