package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 4, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom, "the last task error stays inspectable")
}

func TestDoConstantBackoffBetweenAttempts(t *testing.T) {
	t.Parallel()

	const backoff = 30 * time.Millisecond
	start := time.Now()
	_ = Do(context.Background(), Config{MaxAttempts: 3, Backoff: backoff}, func(context.Context) error {
		return errors.New("always")
	})
	// Two sleeps separate three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 2*backoff)
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	boom := errors.New("unparseable page")
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDoAttemptTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 2, Backoff: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "a timed-out attempt consumes one attempt, then retries")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoCancelDuringBackoffAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := Do(ctx, Config{MaxAttempts: 3, Backoff: time.Hour}, func(context.Context) error {
		calls++
		return errors.New("fail then sleep")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "backoff must not be slept out")
}

func TestDoCanceledContextRunsNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 3}, func(context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Zero(t, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanentNilIsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("plain")))
}
