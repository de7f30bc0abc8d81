package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"stockfetch/internal/pipeline"
	"stockfetch/internal/stock"
)

func renderReport(w io.Writer, r *pipeline.Report[stock.Profile], files []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Run %s", r.RunID)
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"Input symbols", r.Input},
		{"Duplicates", r.Duplicates},
		{"Already recorded", r.AlreadyDone},
		{"Fetched", r.Succeeded},
		{"Failed", r.Failed},
		{"Pending", r.Pending},
		{"Persist errors", r.PersistErrors},
		{"Not persisted", r.Unsaved},
		{"Snapshots", r.Snapshots},
		{"Profiles written", len(r.Results)},
	})
	t.AppendFooter(table.Row{"Duration", r.Duration.Round(time.Millisecond)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(r.Failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.AppendHeader(table.Row{"Symbol", "Attempts", "Error"})
		for _, f := range r.Failures {
			ft.AppendRow(table.Row{f.Key, f.Attempts, f.Err})
		}
		ft.SetStyle(table.StyleRounded)
		ft.Render()
	}

	for _, f := range files {
		fmt.Fprintf(w, "Wrote %s\n", f)
	}
	if r.Unsaved > 0 {
		fmt.Fprintf(w, "%d fetched profiles could not be saved to the progress store and will be fetched again next run.\n", r.Unsaved)
	}
	if r.Interrupted() {
		fmt.Fprintf(w, "Interrupted with %d symbols pending; run again to resume.\n", r.Pending)
	}
}
