package pipeline

import (
	"errors"
	"fmt"
	"time"

	"stockfetch/internal/retry"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// Config tunes a batch run.
type Config struct {
	// MaxConcurrency is the number of symbols fetched at once.
	MaxConcurrency int

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int

	// MinBackoff and MaxBackoff bound the pause between attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// CheckpointInterval is how many new successes separate two snapshots.
	CheckpointInterval int

	// AttemptTimeout bounds a single attempt. Zero disables it.
	AttemptTimeout time.Duration

	// Classify decides which errors are retried. Nil retries everything.
	Classify retry.Classifier
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	p := retry.DefaultPolicy()
	return Config{
		MaxConcurrency:     10,
		MaxRetries:         p.MaxRetries,
		MinBackoff:         p.MinBackoff,
		MaxBackoff:         p.MaxBackoff,
		CheckpointInterval: 100,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.MaxConcurrency < 1:
		return fmt.Errorf("%w: max_concurrency must be positive, got %d", ErrInvalidConfig, c.MaxConcurrency)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative, got %d", ErrInvalidConfig, c.MaxRetries)
	case c.MinBackoff < 0:
		return fmt.Errorf("%w: min_backoff must not be negative, got %s", ErrInvalidConfig, c.MinBackoff)
	case c.MinBackoff > c.MaxBackoff:
		return fmt.Errorf("%w: min_backoff %s exceeds max_backoff %s", ErrInvalidConfig, c.MinBackoff, c.MaxBackoff)
	case c.CheckpointInterval < 1:
		return fmt.Errorf("%w: checkpoint_interval must be positive, got %d", ErrInvalidConfig, c.CheckpointInterval)
	case c.AttemptTimeout < 0:
		return fmt.Errorf("%w: attempt_timeout must not be negative, got %s", ErrInvalidConfig, c.AttemptTimeout)
	}
	return nil
}

// Policy converts the retry settings into a retry.Policy.
func (c Config) Policy() retry.Policy {
	return retry.Policy{
		MaxRetries:     c.MaxRetries,
		MinBackoff:     c.MinBackoff,
		MaxBackoff:     c.MaxBackoff,
		AttemptTimeout: c.AttemptTimeout,
		Classify:       c.Classify,
	}
}
