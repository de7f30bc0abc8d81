package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockfetch/internal/alphavantage"
	"stockfetch/internal/config"
	"stockfetch/internal/fetcher"
	"stockfetch/internal/progress"
	"stockfetch/internal/ratelimit"
	"stockfetch/internal/stock"
	"stockfetch/internal/translate"
	"stockfetch/internal/yahoo"
)

// openProgress opens the configured progress backend. The returned func
// releases its connection.
func (a *app) openProgress(ctx context.Context, cfg *config.Config) (*progress.Progress[stock.Profile], func(), error) {
	var (
		backend progress.Backend
		release = func() {}
	)

	switch cfg.Progress.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Progress.RedisAddr,
			Password: cfg.Progress.RedisPassword,
			DB:       cfg.Progress.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Progress.RedisAddr, err)
		}
		backend = progress.NewRedisBackend(client, cfg.ProgressKey())
		release = func() { client.Close() }

	case "sqlite":
		db, err := progress.OpenSQLite(cfg.Progress.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlBackend, err := progress.NewSQLBackend(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		backend = sqlBackend
		release = func() { db.Close() }

	default:
		backend = progress.NewFileBackend(a.fs, cfg.Progress.Path)
	}

	store, err := progress.Open[stock.Profile](ctx, backend)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return store, release, nil
}

// newSource builds the profile fetcher for cfg.Source, wrapped with
// description translation when enabled.
func newSource(cfg *config.Config, limiter *ratelimit.Limiter) fetcher.Fetcher[stock.Profile] {
	var src fetcher.Fetcher[stock.Profile]

	switch cfg.Source {
	case "alphavantage":
		src = alphavantage.NewOverviewFetcher(
			cfg.AlphavantageAPIKey,
			cfg.AlphavantageBaseURL,
			cfg.HTTPOptions(),
			limiter,
		).WithRequiredReturn(cfg.RequiredReturn)
	default:
		src = yahoo.NewClient(yahoo.Options{
			BaseURL:        cfg.YahooBaseURL,
			HTTP:           cfg.HTTPOptions(),
			Limiter:        limiter,
			RequiredReturn: cfg.RequiredReturn,
		})
	}

	if cfg.Translate.Enabled {
		src = translate.Wrap(src, translate.New(translate.Options{
			BaseURL: cfg.Translate.BaseURL,
			Source:  cfg.Translate.Source,
			Target:  cfg.Translate.Target,
			HTTP:    cfg.HTTPOptions(),
			Limiter: limiter,
		}))
	}
	return src
}
