package output

import (
	"io"
	"strings"

	"stockfetch/internal/stock"
)

// summaryHoldings is how many holdings a fund's summary names.
const summaryHoldings = 3

// WriteSummary writes a short prose paragraph per profile, separated by
// the delimiter.
func WriteSummary(w io.Writer, profiles []stock.Profile) error {
	parts := make([]string, 0, 2*len(profiles))
	for _, p := range profiles {
		parts = append(parts, summarize(p), Delimiter)
	}
	_, err := io.WriteString(w, strings.Join(parts, "\n\n"))
	return err
}

func summarize(p stock.Profile) string {
	var b strings.Builder
	printer := newPrinter()

	printer.Fprintf(&b, "%s (ticker: %s) is ", p.DisplayName(), p.Symbol)
	switch {
	case p.Sector != "" && p.Industry != "":
		printer.Fprintf(&b, "a stock in the %s sector, %s industry.\n", p.Sector, p.Industry)
	case p.Sector != "":
		printer.Fprintf(&b, "a stock in the %s sector.\n", p.Sector)
	case p.Industry != "":
		printer.Fprintf(&b, "a stock in the %s industry.\n", p.Industry)
	case len(p.TopHoldings) > 0:
		b.WriteString("a fund.\n")
	default:
		b.WriteString("a listed security.\n")
	}
	if p.Category != "" {
		printer.Fprintf(&b, "Category: %s\n", p.Category)
	}

	if p.Financials != nil {
		b.WriteString("\nFinancials (latest fiscal year):\n")
		for _, item := range p.Financials.LineItems() {
			printer.Fprintf(&b, "%s: %s\n", item.Label, Amount(item.Value))
		}
	}

	if len(p.TopHoldings) > 0 {
		top := p.TopHoldings[:min(len(p.TopHoldings), summaryHoldings)]
		names := make([]string, len(top))
		for i, h := range top {
			names[i] = h.Name + " " + h.Percent
		}
		printer.Fprintf(&b, "\nIts largest holdings are %s.\n", strings.Join(names, ", "))
	}

	printer.Fprintf(&b, "\nDescription:\n%s\n", stock.TruncateToLastSentence(p.Summary, stock.DefaultSummaryLength))
	return b.String()
}
