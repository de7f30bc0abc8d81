package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultCheckThreshold is the section length the check command compares
// against.
const DefaultCheckThreshold = 1000

// Section describes one delimiter-separated record of a text file.
type Section struct {
	Index  int
	Length int
	Over   bool
	Ticker string
}

// CheckSections splits r on the delimiter and measures every non-empty
// section in runes. Index counts empty sections too, so numbering matches
// the position in the file.
func CheckSections(r io.Reader, threshold int) ([]Section, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var out []Section
	for i, raw := range strings.Split(string(data), Delimiter) {
		section := strings.TrimSpace(raw)
		if section == "" {
			continue
		}
		n := utf8.RuneCountInString(section)
		out = append(out, Section{
			Index:  i + 1,
			Length: n,
			Over:   n > threshold,
			Ticker: tickerOf(section),
		})
	}
	return out, nil
}

func tickerOf(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if rest, ok := strings.CutPrefix(line, "Ticker:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return "N/A"
}
