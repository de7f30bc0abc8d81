package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockfetch/internal/fetcher"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		MinBackoff: time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
	}
}

func countingFetch(calls *atomic.Int32, fn func(n int32) (string, error)) fetcher.Func[string] {
	return func(ctx context.Context, key string) (string, error) {
		return fn(calls.Add(1))
	}
}

func TestDo_ZeroRetriesAttemptsOnce(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var calls atomic.Int32
		res := Do(context.Background(), fastPolicy(0), "AAA", countingFetch(&calls, func(int32) (string, error) {
			return "ok", nil
		}))

		require.True(t, res.OK())
		assert.Equal(t, "ok", res.Payload)
		assert.Equal(t, 1, res.Attempts)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("failure", func(t *testing.T) {
		var calls atomic.Int32
		res := Do(context.Background(), fastPolicy(0), "AAA", countingFetch(&calls, func(int32) (string, error) {
			return "", errors.New("boom")
		}))

		require.False(t, res.OK())
		assert.Equal(t, 1, res.Attempts)
		assert.EqualValues(t, 1, calls.Load())
	})
}

func TestDo_RetryExhaustion(t *testing.T) {
	cause := errors.New("upstream unavailable")
	var calls atomic.Int32

	res := Do(context.Background(), fastPolicy(2), "BBB", countingFetch(&calls, func(int32) (string, error) {
		return "", cause
	}))

	require.False(t, res.OK())
	assert.Equal(t, fetcher.OutcomeFailure, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 3, calls.Load())
	assert.ErrorIs(t, res.Err, ErrRetryExhausted)
	assert.ErrorIs(t, res.Err, cause)
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	var calls atomic.Int32

	res := Do(context.Background(), fastPolicy(3), "CCC", countingFetch(&calls, func(n int32) (string, error) {
		if n < 3 {
			return "", errors.New("flaky")
		}
		return "third time", nil
	}))

	require.True(t, res.OK())
	assert.Equal(t, "third time", res.Payload)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 3, calls.Load(), "no attempts after a success")
}

func TestDo_ClassifierStopsEarly(t *testing.T) {
	p := fastPolicy(5)
	p.Classify = fetcher.IsRetryable
	var calls atomic.Int32

	res := Do(context.Background(), p, "NOPE", countingFetch(&calls, func(int32) (string, error) {
		return "", fetcher.NewNotFoundError("NOPE")
	}))

	require.False(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.NotErrorIs(t, res.Err, ErrRetryExhausted)

	var fe *fetcher.FetchError
	require.ErrorAs(t, res.Err, &fe)
	assert.Equal(t, fetcher.ErrorTypeNotFound, fe.Type)
}

func TestDo_DefaultClassifierRetriesEverything(t *testing.T) {
	var calls atomic.Int32

	res := Do(context.Background(), fastPolicy(1), "NOPE", countingFetch(&calls, func(int32) (string, error) {
		return "", fetcher.NewNotFoundError("NOPE")
	}))

	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
}

func TestDo_RecoversPanic(t *testing.T) {
	res := Do(context.Background(), fastPolicy(1), "PANIC", func(ctx context.Context, key string) (string, error) {
		panic("nil map write")
	})

	require.False(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.Err, ErrPanic)
}

func TestDo_AttemptTimeout(t *testing.T) {
	p := fastPolicy(1)
	p.AttemptTimeout = 20 * time.Millisecond
	var calls atomic.Int32

	start := time.Now()
	res := Do(context.Background(), p, "HANG", func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		// Ignores ctx on purpose.
		time.Sleep(500 * time.Millisecond)
		return "late", nil
	})

	require.False(t, res.OK())
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, 2, res.Attempts)

	var fe *fetcher.FetchError
	require.ErrorAs(t, res.Err, &fe)
	assert.Equal(t, fetcher.ErrorTypeTimeout, fe.Type)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxRetries: 3, MinBackoff: time.Second, MaxBackoff: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := Do(ctx, p, "SLOW", countingFetch(&calls, func(int32) (string, error) {
		return "", errors.New("boom")
	}))

	require.False(t, res.OK())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestDo_InFlightAttemptFinishesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	go func() {
		<-started
		cancel()
	}()

	res := Do(ctx, fastPolicy(2), "AAPL", func(ctx context.Context, key string) (string, error) {
		close(started)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return "payload", nil
		}
	})

	require.True(t, res.OK(), "attempt was aborted: %v", res.Err)
	assert.Equal(t, "payload", res.Payload)
	assert.Equal(t, 1, res.Attempts)
}

func TestDo_FailureAfterCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	res := Do(ctx, fastPolicy(3), "AAPL", countingFetch(&calls, func(int32) (string, error) {
		cancel()
		return "", errors.New("boom")
	}))

	require.False(t, res.OK())
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NotErrorIs(t, res.Err, ErrRetryExhausted)
}

func TestDo_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32

	res := Do(ctx, fastPolicy(3), "AAPL", countingFetch(&calls, func(int32) (string, error) {
		return "payload", nil
	}))

	require.False(t, res.OK())
	assert.Zero(t, calls.Load())
	assert.Zero(t, res.Attempts)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{MinBackoff: 5 * time.Second, MaxBackoff: 10 * time.Second}
	for i := 0; i < 1000; i++ {
		d := p.Backoff()
		require.GreaterOrEqual(t, d, 5*time.Second)
		require.LessOrEqual(t, d, 10*time.Second)
	}

	fixed := Policy{MinBackoff: 3 * time.Second, MaxBackoff: 3 * time.Second}
	assert.Equal(t, 3*time.Second, fixed.Backoff())
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 4, p.Attempts())
	assert.Equal(t, 5*time.Second, p.MinBackoff)
	assert.Equal(t, 10*time.Second, p.MaxBackoff)
}
