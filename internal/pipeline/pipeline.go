// Package pipeline drives a batch of symbols through the retrying fetcher
// and the worker pool, records every success in the progress store and
// takes periodic snapshots of what has been collected so far.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stockfetch/internal/coordinator"
	"stockfetch/internal/fetcher"
	"stockfetch/internal/logging"
	"stockfetch/internal/progress"
	"stockfetch/internal/retry"
)

// ErrNilFetch is returned by Run when no fetch function is given.
var ErrNilFetch = errors.New("pipeline: fetch function is nil")

// SnapshotFunc receives the payloads accumulated so far. seq counts the new
// successes of the current run at the time of the call.
type SnapshotFunc[T any] func(ctx context.Context, seq int, results []T) error

// Option configures a Pipeline.
type Option[T any] func(*Pipeline[T])

// WithSnapshot installs the checkpoint callback.
func WithSnapshot[T any](fn SnapshotFunc[T]) Option[T] {
	return func(p *Pipeline[T]) {
		p.snapshot = fn
	}
}

// WithLogger replaces the default component logger.
func WithLogger[T any](logger zerolog.Logger) Option[T] {
	return func(p *Pipeline[T]) {
		p.logger = logger
	}
}

// Failure describes a symbol that was dropped after its retries.
type Failure struct {
	Key      string
	Err      error
	Attempts int
}

// Report summarises a run.
type Report[T any] struct {
	RunID string

	// Results holds already-recorded payloads in input order followed by
	// new payloads in completion order. Keys is parallel to Results.
	Results []T
	Keys    []string

	Failures []Failure

	Input         int
	Duplicates    int
	AlreadyDone   int
	Succeeded     int
	Failed        int
	PersistErrors int
	Snapshots     int

	// Unsaved counts successes that are still missing from the progress
	// store after the closing flush.
	Unsaved int

	// Pending counts symbols left for the next run because the run was
	// cancelled before they were handed out or while they were retrying.
	Pending int

	Duration time.Duration
}

// Interrupted reports whether the run stopped before every symbol was tried.
func (r *Report[T]) Interrupted() bool {
	return r.Pending > 0
}

// Pipeline runs batches against a single progress store.
type Pipeline[T any] struct {
	progress *progress.Progress[T]
	cfg      Config
	snapshot SnapshotFunc[T]
	logger   zerolog.Logger
}

// New validates cfg and builds a Pipeline over an opened progress store.
func New[T any](store *progress.Progress[T], cfg Config, opts ...Option[T]) (*Pipeline[T], error) {
	if store == nil {
		return nil, errors.New("pipeline: progress store is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline[T]{
		progress: store,
		cfg:      cfg,
		logger:   logging.NewLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run fetches every symbol that is not yet in the progress store.
//
// Individual failures never abort the batch; they are logged and listed in
// the report. Cancelling ctx stops new symbols from being started; attempts
// already running finish and are recorded, and symbols cut off between
// retries count as pending. The partial report is returned without error.
// Run only fails when the batch cannot start.
func (p *Pipeline[T]) Run(ctx context.Context, symbols []string, fetch fetcher.Func[T]) (*Report[T], error) {
	if fetch == nil {
		return nil, ErrNilFetch
	}

	start := time.Now()
	report := &Report[T]{
		RunID: uuid.NewString(),
		Input: len(symbols),
	}
	logger := p.logger.With().Str("run_id", report.RunID).Logger()

	pending := p.partition(symbols, report, logger)

	policy := p.cfg.Policy()
	coord := coordinator.New(p.cfg.MaxConcurrency, func(ctx context.Context, key string) fetcher.Result[T] {
		return retry.Do(ctx, policy, key, fetch)
	})

	logger.Info().
		Int("input", report.Input).
		Int("already_done", report.AlreadyDone).
		Int("pending", len(pending)).
		Int("workers", coord.Workers()).
		Msg("batch started")

	// Writes that follow a completed fetch must land even after cancellation.
	persistCtx := context.WithoutCancel(ctx)

	for res := range coord.Run(ctx, pending) {
		if !res.OK() {
			if interrupted(ctx, res.Err) {
				logger.Warn().
					Err(res.Err).
					Str("symbol", res.Key).
					Int("attempts", res.Attempts).
					Msg("fetch interrupted, symbol left for the next run")
				continue
			}
			p.fail(report, res, logger)
			continue
		}

		if err := p.progress.Record(persistCtx, res.Key, res.Payload); err != nil {
			report.PersistErrors++
			persistErrorsTotal.Inc()
			logger.Error().
				Err(err).
				Str("symbol", res.Key).
				Msg("failed to persist progress")
		}

		report.Results = append(report.Results, res.Payload)
		report.Keys = append(report.Keys, res.Key)
		report.Succeeded++
		itemsTotal.WithLabelValues(statusSuccess).Inc()

		logger.Debug().
			Str("symbol", res.Key).
			Int("attempts", res.Attempts).
			Msg("fetched")

		if report.Succeeded%p.cfg.CheckpointInterval == 0 {
			p.takeSnapshot(persistCtx, report, logger)
		}
	}

	if p.progress.Unsaved() > 0 {
		if err := p.progress.Flush(persistCtx); err != nil {
			logger.Error().Err(err).Msg("final progress flush failed")
		}
		report.Unsaved = p.progress.Unsaved()
	}

	report.Pending = len(pending) - report.Succeeded - report.Failed
	report.Duration = time.Since(start)
	runDuration.Observe(report.Duration.Seconds())

	event := logger.Info()
	if report.Interrupted() {
		event = logger.Warn()
	}
	event.
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("already_done", report.AlreadyDone).
		Int("pending", report.Pending).
		Int("persist_errors", report.PersistErrors).
		Int("unsaved", report.Unsaved).
		Dur("duration", report.Duration).
		Msg("batch finished")

	return report, nil
}

// interrupted reports whether err came from cancelling the batch rather
// than from the symbol itself.
func interrupted(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return cerr != nil && errors.Is(err, cerr)
}

// partition drops duplicates, collects already-recorded payloads into the
// report and returns the symbols that still need fetching, in input order.
func (p *Pipeline[T]) partition(symbols []string, report *Report[T], logger zerolog.Logger) []string {
	seen := make(map[string]struct{}, len(symbols))
	pending := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			report.Duplicates++
			itemsTotal.WithLabelValues(statusDuplicate).Inc()
			logger.Debug().Str("symbol", sym).Msg("duplicate symbol skipped")
			continue
		}
		seen[sym] = struct{}{}

		if payload, ok := p.progress.Get(sym); ok {
			report.Results = append(report.Results, payload)
			report.Keys = append(report.Keys, sym)
			report.AlreadyDone++
			itemsTotal.WithLabelValues(statusAlreadyDone).Inc()
			continue
		}
		pending = append(pending, sym)
	}
	return pending
}

func (p *Pipeline[T]) fail(report *Report[T], res fetcher.Result[T], logger zerolog.Logger) {
	report.Failed++
	report.Failures = append(report.Failures, Failure{
		Key:      res.Key,
		Err:      res.Err,
		Attempts: res.Attempts,
	})
	itemsTotal.WithLabelValues(statusFailure).Inc()

	logger.Error().
		Err(res.Err).
		Str("symbol", res.Key).
		Int("attempts", res.Attempts).
		Msg("fetch failed, symbol dropped")
}

func (p *Pipeline[T]) takeSnapshot(ctx context.Context, report *Report[T], logger zerolog.Logger) {
	if p.snapshot == nil {
		return
	}

	results := make([]T, len(report.Results))
	copy(results, report.Results)

	if err := p.snapshot(ctx, report.Succeeded, results); err != nil {
		snapshotsTotal.WithLabelValues("error").Inc()
		logger.Error().
			Err(err).
			Int("seq", report.Succeeded).
			Msg("snapshot failed")
		return
	}

	report.Snapshots++
	snapshotsTotal.WithLabelValues("ok").Inc()
	logger.Info().
		Int("seq", report.Succeeded).
		Int("results", len(results)).
		Msg("snapshot written")
}
