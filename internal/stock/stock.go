// Package stock holds the payload recorded for every fetched symbol and the
// calculations derived from it.
package stock

import (
	"fmt"
	"strings"
)

// MaxTopHoldings is the number of fund holdings kept per profile.
const MaxTopHoldings = 5

// DefaultSummaryLength is the rune budget for descriptions in text output.
const DefaultSummaryLength = 1000

// Profile is the payload stored in the progress store for one symbol.
type Profile struct {
	Symbol      string      `json:"symbol"`
	ShortName   string      `json:"shortName,omitempty"`
	LongName    string      `json:"longName,omitempty"`
	Sector      string      `json:"sector,omitempty"`
	Industry    string      `json:"industry,omitempty"`
	Category    string      `json:"category,omitempty"`
	Summary     string      `json:"longBusinessSummary,omitempty"`
	Financials  *Financials `json:"financials,omitempty"`
	TopHoldings []Holding   `json:"topHoldings,omitempty"`
	Valuation   *Valuation  `json:"valuation,omitempty"`
}

// DisplayName prefers the long name and falls back to the short name and
// then the symbol.
func (p Profile) DisplayName() string {
	switch {
	case p.LongName != "":
		return p.LongName
	case p.ShortName != "":
		return p.ShortName
	default:
		return p.Symbol
	}
}

// Holding is one position of a fund.
type Holding struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Percent string `json:"percent"`
}

// FormatPercent renders a fraction such as 0.0712 as "7.12%".
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// TopHoldings keeps the first MaxTopHoldings entries.
func TopHoldings(h []Holding) []Holding {
	if len(h) > MaxTopHoldings {
		return h[:MaxTopHoldings]
	}
	return h
}

// TruncateToLastSentence shortens text to at most max runes, cutting after
// the last '.' inside the limit when there is one.
func TruncateToLastSentence(text string, max int) string {
	runes := []rune(text)
	if max < 0 || len(runes) <= max {
		return text
	}
	truncated := string(runes[:max])
	if i := strings.LastIndex(truncated, "."); i != -1 {
		return truncated[:i+1]
	}
	return truncated
}
