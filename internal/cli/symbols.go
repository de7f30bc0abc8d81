package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockfetch/internal/ratelimit"
	"stockfetch/internal/symbols"
	"stockfetch/internal/yahoo"
)

func (a *app) symbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Builds symbol lists for the run command.",
	}
	cmd.AddCommand(a.symbolsExtractCmd(), a.symbolsETFsCmd())
	return cmd
}

func (a *app) symbolsExtractCmd() *cobra.Command {
	var skipHeader bool

	cmd := &cobra.Command{
		Use:   "extract <listing> <output>",
		Short: "Writes the first tab-separated column of a listing, one symbol per line.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := symbols.ExtractFile(a.fs, args[0], args[1], skipHeader)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d symbols to %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipHeader, "skip-header", false, "ignore the first line")
	return cmd
}

func (a *app) symbolsETFsCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "etfs <output>",
		Short: "Scrapes the Yahoo Finance ETF listing into a symbol list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lister := yahoo.NewLister(a.cfg.YahooListingURL, a.cfg.HTTPOptions(), ratelimit.New(a.cfg.Rates()))

			syms, err := lister.ListETFs(cmd.Context(), count)
			if err != nil {
				return err
			}
			if err := symbols.WriteFile(a.fs, args[0], syms); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d symbols to %s\n", len(syms), args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 100, "maximum number of symbols (0 keeps every row)")
	return cmd
}
