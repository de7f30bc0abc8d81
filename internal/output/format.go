// Package output renders fetched profiles as text, JSON or CSV, writes the
// intermediate and final result files, and checks section lengths of text
// output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"stockfetch/internal/stock"
)

// Delimiter separates records in text output.
var Delimiter = strings.Repeat("=", 50)

// Format selects the rendering of a result file.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts text, json or csv in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Write renders profiles in format to w.
func Write(w io.Writer, format Format, profiles []stock.Profile) error {
	switch format {
	case FormatText:
		return WriteText(w, profiles, stock.DefaultSummaryLength)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if profiles == nil {
			profiles = []stock.Profile{}
		}
		return enc.Encode(profiles)
	case FormatCSV:
		return WriteCSV(w, profiles)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
