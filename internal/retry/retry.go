// Package retry runs tasks under a per-attempt timeout with a bounded,
// constant-backoff retry loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last error of a task that failed on every
// allowed attempt.
var ErrExhausted = errors.New("retry: attempts exhausted")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Do returns it immediately
// without consuming further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Config bounds one task's retry behavior. Backoff is constant between
// attempts, not exponential.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

// Do executes task up to cfg.MaxAttempts times, each attempt under
// cfg.Timeout. Permanent errors short-circuit the loop. A cancellation
// during the backoff sleep aborts immediately instead of sleeping it
// out. After the attempt budget is spent, the returned error matches
// both ErrExhausted and the task's last error.
func Do(ctx context.Context, cfg Config, task func(context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry: %w", err)
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		err := task(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(cfg.Backoff):
		case <-ctx.Done():
			return fmt.Errorf("retry: backoff interrupted: %w", ctx.Err())
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}
