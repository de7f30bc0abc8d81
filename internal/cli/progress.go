package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func (a *app) progressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Lists the symbols recorded in the progress store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := a.openProgress(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer release()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Symbol", "Name", "Sector"})

			for _, key := range store.Keys() {
				p, _ := store.Get(key)
				t.AppendRow(table.Row{key, p.DisplayName(), p.Sector})
			}
			t.AppendFooter(table.Row{"Total", store.Len(), ""})

			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}

	f := cmd.Flags()
	f.String("backend", "file", "progress backend: file, redis or sqlite")
	f.String("progress", "progress.json", "progress file for the file backend")
	f.String("redis-addr", "", "Redis address for the redis backend")
	f.String("sqlite-path", "progress.db", "database path for the sqlite backend")
	f.String("source", "yahoo", "source whose Redis progress key is listed")
	return cmd
}
