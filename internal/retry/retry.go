// Package retry runs a single fetch operation under a bounded retry policy
// with uniformly jittered backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"stockfetch/internal/fetcher"
)

var (
	// ErrRetryExhausted is returned when all attempts failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrPanic wraps a panic raised inside a fetch function.
	ErrPanic = errors.New("fetch panicked")
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(err error) bool

// AlwaysRetry treats every error as transient.
func AlwaysRetry(error) bool { return true }

// Policy holds the configuration for retry logic.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int

	// MinBackoff and MaxBackoff bound the uniformly drawn wait between attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// AttemptTimeout bounds each attempt. Zero means no deadline.
	AttemptTimeout time.Duration

	// Classify defaults to AlwaysRetry.
	Classify Classifier
}

// DefaultPolicy returns the policy observed in the scraping scripts:
// 3 retries with a 5-10s pause.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		MinBackoff: 5 * time.Second,
		MaxBackoff: 10 * time.Second,
		Classify:   AlwaysRetry,
	}
}

// Attempts returns the total number of calls the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Backoff draws a wait duration uniformly from [MinBackoff, MaxBackoff].
func (p Policy) Backoff() time.Duration {
	if p.MaxBackoff <= p.MinBackoff {
		return max(p.MinBackoff, 0)
	}
	span := int64(p.MaxBackoff - p.MinBackoff)
	return p.MinBackoff + time.Duration(rand.Int63n(span+1))
}

func (p Policy) classify(err error) bool {
	if p.Classify == nil {
		return AlwaysRetry(err)
	}
	return p.Classify(err)
}

// Do calls fetch for key until it succeeds, the policy is exhausted, the
// classifier rejects an error, or ctx is cancelled. It never returns an
// error directly; failures are reported in the Result.
//
// Cancelling ctx stops new attempts and cuts a backoff short, but an attempt
// already running is left to finish under AttemptTimeout alone. A Result
// ended by cancellation carries an error matching ctx.Err().
func Do[T any](ctx context.Context, p Policy, key string, fetch fetcher.Func[T]) fetcher.Result[T] {
	if err := ctx.Err(); err != nil {
		return fetcher.Failed[T](key, err, 0)
	}

	attemptCtx := context.WithoutCancel(ctx)
	maxAttempts := p.Attempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		payload, err := attemptOnce(attemptCtx, p.AttemptTimeout, key, fetch)
		if err == nil {
			attemptsTotal.WithLabelValues(fetcher.OutcomeSuccess.String()).Inc()
			if attempt > 1 {
				log.Info().
					Str("symbol", key).
					Int("attempt", attempt).
					Msg("fetch succeeded after retry")
			}
			return fetcher.Succeeded(key, payload, attempt)
		}

		attemptsTotal.WithLabelValues(fetcher.OutcomeFailure.String()).Inc()
		lastErr = err

		if cerr := ctx.Err(); cerr != nil {
			return fetcher.Failed[T](key, fmt.Errorf("%w (last error: %w)", cerr, err), attempt)
		}

		if !p.classify(err) {
			log.Debug().
				Err(err).
				Str("symbol", key).
				Int("attempt", attempt).
				Msg("error is not retryable")
			return fetcher.Failed[T](key, err, attempt)
		}

		// No pause after the last attempt.
		if attempt >= maxAttempts {
			break
		}

		wait := p.Backoff()
		retriesTotal.Inc()
		backoffSeconds.Observe(wait.Seconds())

		log.Debug().
			Err(err).
			Str("symbol", key).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("retrying fetch after backoff")

		if err := sleep(ctx, wait); err != nil {
			log.Warn().
				Str("symbol", key).
				Int("attempt", attempt).
				Msg("context cancelled during retry backoff")
			return fetcher.Failed[T](key, fmt.Errorf("%w (last error: %w)", err, lastErr), attempt)
		}
	}

	exhaustedTotal.Inc()
	log.Warn().
		Err(lastErr).
		Str("symbol", key).
		Int("max_attempts", maxAttempts).
		Msg("retry attempts exhausted")

	return fetcher.Failed[T](key, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr), maxAttempts)
}

type outcome[T any] struct {
	payload T
	err     error
}

// attemptOnce runs fetch once, converting panics into errors. With a
// timeout the fetch runs on its own goroutine so a call that ignores its
// context cannot hang the worker.
func attemptOnce[T any](ctx context.Context, timeout time.Duration, key string, fetch fetcher.Func[T]) (T, error) {
	if timeout <= 0 {
		o := call(ctx, key, fetch)
		return o.payload, o.err
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		done <- call(actx, key, fetch)
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return o.payload, fetcher.NewTimeoutError(o.err)
		}
		return o.payload, o.err
	case <-actx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fetcher.NewTimeoutError(actx.Err())
	}
}

func call[T any](ctx context.Context, key string, fetch fetcher.Func[T]) (o outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	o.payload, o.err = fetch(ctx, key)
	return o
}

func sleep(ctx context.Context, d time.Duration) error {
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
