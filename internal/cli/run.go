package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/logging"
	"stockfetch/internal/metrics"
	"stockfetch/internal/output"
	"stockfetch/internal/pipeline"
	"stockfetch/internal/ratelimit"
	"stockfetch/internal/stock"
	"stockfetch/internal/symbols"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [symbols-file]",
		Short: "Fetches a profile for every symbol not yet recorded.",
		Long: `Fetches a profile for every symbol in the list that is not yet in the
progress store. Failed symbols are retried with backoff and then reported;
they never stop the batch. Interrupting the run keeps everything fetched so
far, and the next run resumes with the remaining symbols.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run,
	}

	def := pipeline.DefaultConfig()
	f := cmd.Flags()
	f.String("symbols", "", "file with one ticker per line")
	f.Int("limit", 0, "only read the first N symbols (0 reads all)")
	f.String("source", "yahoo", "profile source: yahoo or alphavantage")
	f.Int("concurrency", def.MaxConcurrency, "symbols fetched at once")
	f.Int("retries", def.MaxRetries, "retries after a failed attempt")
	f.Duration("min-backoff", def.MinBackoff, "shortest pause between attempts")
	f.Duration("max-backoff", def.MaxBackoff, "longest pause between attempts")
	f.Duration("attempt-timeout", 0, "bound on a single attempt (0 disables)")
	f.Int("checkpoint", def.CheckpointInterval, "new successes between intermediate snapshots")
	f.Bool("classify-errors", false, "do not retry errors known to be permanent")
	f.String("backend", "file", "progress backend: file, redis or sqlite")
	f.String("progress", "progress.json", "progress file for the file backend")
	f.String("redis-addr", "", "Redis address for the redis backend")
	f.String("sqlite-path", "progress.db", "database path for the sqlite backend")
	f.String("output-dir", "data", "directory for snapshots and the final output")
	f.String("prefix", "stock_data", "output file name prefix")
	f.String("format", string(output.FormatText), "output format: text, json or csv")
	f.Bool("translate", false, "translate descriptions")
	f.String("target-lang", "ko", "translation target language")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := logging.NewLogger("cli")

	path := cfg.Symbols
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("missing required configuration: symbols")
	}

	syms, err := symbols.ReadFile(a.fs, path, cfg.Limit)
	if err != nil {
		return err
	}

	store, release, err := a.openProgress(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Start(ctx, cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	snap := output.NewSnapshotter(a.fs, cfg.Output.Dir, cfg.Output.Prefix, format)

	p, err := pipeline.New(store, cfg.PipelineConfig(),
		pipeline.WithSnapshot[stock.Profile](snap.Snapshot),
		pipeline.WithLogger[stock.Profile](logger),
	)
	if err != nil {
		return err
	}

	src := newSource(cfg, ratelimit.New(cfg.Rates()))
	logger.Info().
		Str("source", src.Source()).
		Int("symbols", len(syms)).
		Int("recorded", store.Len()).
		Msg("starting batch")

	report, err := p.Run(ctx, syms, fetcher.FuncOf(src))
	if err != nil {
		return err
	}

	files, err := a.writeOutputs(snap, report.Results)
	renderReport(cmd.OutOrStdout(), report, files)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (a *app) writeOutputs(snap *output.Snapshotter, profiles []stock.Profile) ([]string, error) {
	var files []string

	final, err := snap.WriteFinal(profiles)
	if err != nil {
		return files, err
	}
	files = append(files, final)

	if a.cfg.Output.Summary {
		summary, err := snap.WriteSummary(profiles)
		if err != nil {
			return files, err
		}
		files = append(files, summary)
	}
	return files, nil
}
