package output

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stockfetch/internal/stock"
)

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// Amount formats v with thousands separators and two decimals. Zero renders
// as an empty string because it means "not reported".
func Amount(v float64) string {
	if v == 0 {
		return ""
	}
	return newPrinter().Sprintf("%.2f", v)
}

// LongRecordNote is appended to text records longer than
// DefaultCheckThreshold runes.
const LongRecordNote = "[Note: this entry is over 1000 characters.]"

// WriteText writes one labelled record per profile, each followed by the
// delimiter line. Descriptions are cut to summaryLen runes.
func WriteText(w io.Writer, profiles []stock.Profile, summaryLen int) error {
	bw := bufio.NewWriter(w)
	for _, p := range profiles {
		writeRecord(bw, p, summaryLen)
	}
	return bw.Flush()
}

func writeRecord(bw *bufio.Writer, p stock.Profile, summaryLen int) {
	var w strings.Builder
	printer := newPrinter()
	printer.Fprintf(&w, "Ticker: %s\n", p.Symbol)
	printer.Fprintf(&w, "Name: %s\n", p.DisplayName())
	if p.ShortName != "" && p.ShortName != p.DisplayName() {
		printer.Fprintf(&w, "Short Name: %s\n", p.ShortName)
	}
	printer.Fprintf(&w, "Sector: %s\n", p.Sector)
	printer.Fprintf(&w, "Industry: %s\n", p.Industry)
	printer.Fprintf(&w, "Category: %s\n", p.Category)

	if p.Financials != nil {
		w.WriteString("\nFinancials (latest fiscal year):\n")
		for _, item := range p.Financials.LineItems() {
			printer.Fprintf(&w, "%s: %s\n", item.Label, Amount(item.Value))
		}
	}

	if len(p.TopHoldings) > 0 {
		printer.Fprintf(&w, "\nTop %d Holdings:\n", len(p.TopHoldings))
		for _, h := range p.TopHoldings {
			printer.Fprintf(&w, "- %s (%s): %s\n", h.Name, h.Symbol, h.Percent)
		}
	}

	if v := p.Valuation; v != nil {
		w.WriteString("\nValuation:\n")
		printer.Fprintf(&w, "Price: %s\n", Amount(v.Price))
		printer.Fprintf(&w, "PER: %.2f\n", v.PER)
		printer.Fprintf(&w, "PBR: %.2f\n", v.PBR)
		printer.Fprintf(&w, "Fair Value: %s\n", Amount(v.FairValue))
		printer.Fprintf(&w, "Parity: %.2f\n", v.Parity)
		printer.Fprintf(&w, "Expected Return: %s\n", stock.FormatPercent(v.ExpectedReturn))
	}

	printer.Fprintf(&w, "\nDescription:\n%s\n\n", stock.TruncateToLastSentence(p.Summary, summaryLen))
	if utf8.RuneCountInString(w.String()) > DefaultCheckThreshold {
		printer.Fprintf(&w, "%s\n", LongRecordNote)
	}
	printer.Fprintf(&w, "\n%s\n\n", Delimiter)
	bw.WriteString(w.String())
}
