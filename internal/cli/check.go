package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"stockfetch/internal/output"
)

func (a *app) checkCmd() *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Reports the length of every record in a text output file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fs.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			sections, err := output.CheckSections(f, threshold)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Section", "Ticker", "Length", "Status"})

			over := 0
			for _, s := range sections {
				status := "ok"
				if s.Over {
					status = "over"
					over++
				}
				t.AppendRow(table.Row{s.Index, s.Ticker, s.Length, status})
			}
			t.AppendFooter(table.Row{"", "", "Over", fmt.Sprintf("%d/%d", over, len(sections))})

			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", output.DefaultCheckThreshold, "maximum section length in characters")
	return cmd
}
