// Package cli is the stockfetch command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"stockfetch/internal/config"
	"stockfetch/internal/logging"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	fs     afero.Fs
	cfg    *config.Config
	closer io.Closer
}

// ExecuteContext runs the command tree and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	a := &app{fs: afero.NewOsFs()}
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockfetch",
		Short: "stockfetch fetches stock and fund profiles in resumable batches.",
		Long: `stockfetch fetches a profile for every ticker in a list, retrying failures
and recording each success so an interrupted batch resumes where it stopped.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default ./config.yaml or $HOME/.stockfetch/config.yaml)")
	pf.String("log-level", string(logging.LevelInfo), "debug, info, warn or error")
	pf.Bool("log-pretty", false, "human-readable console logs")
	pf.String("log-file", "", "also append JSON logs to this file")

	cmd.AddCommand(
		a.runCmd(),
		a.symbolsCmd(),
		a.checkCmd(),
		a.progressCmd(),
	)
	return cmd
}

// setup loads configuration and installs the global logger before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	_, closer, err := logging.Setup(cfg.Logging())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	a.cfg = cfg
	a.closer = closer
	return nil
}

func (a *app) close() {
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
}
