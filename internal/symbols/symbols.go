// Package symbols reads ticker lists and extracts them from tab-separated
// exports.
package symbols

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"stockfetch/internal/fsutil"
)

// ReadFile returns the first limit symbols in path, one per line. A limit of
// zero or less returns all of them.
func ReadFile(fs afero.Fs, path string, limit int) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol list: %w", err)
	}
	defer f.Close()

	syms, err := Parse(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read symbol list %s: %w", path, err)
	}
	return syms, nil
}

// Parse reads one symbol per line, trimming whitespace and skipping blank
// lines.
func Parse(r io.Reader, limit int) ([]string, error) {
	var syms []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		syms = append(syms, s)
		if limit > 0 && len(syms) == limit {
			break
		}
	}
	return syms, sc.Err()
}

// ExtractColumn copies the first tab-separated field of every line of r to
// w, one per line, and returns how many were written.
func ExtractColumn(r io.Reader, w io.Writer, skipHeader bool) (int, error) {
	sc := bufio.NewScanner(r)
	if skipHeader && !sc.Scan() {
		return 0, sc.Err()
	}

	bw := bufio.NewWriter(w)
	n := 0
	for sc.Scan() {
		field, _, _ := strings.Cut(sc.Text(), "\t")
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, err := bw.WriteString(field + "\n"); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// ExtractFile runs ExtractColumn from in to out and replaces out atomically.
func ExtractFile(fs afero.Fs, in, out string, skipHeader bool) (int, error) {
	f, err := fs.Open(in)
	if err != nil {
		return 0, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	n, err := ExtractColumn(f, &buf, skipHeader)
	if err != nil {
		return 0, fmt.Errorf("extract symbols from %s: %w", in, err)
	}
	if err := fsutil.WriteFileAtomic(fs, out, buf.Bytes(), 0o644); err != nil {
		return 0, err
	}
	return n, nil
}

// WriteFile writes syms one per line to path.
func WriteFile(fs afero.Fs, path string, syms []string) error {
	var buf bytes.Buffer
	for _, s := range syms {
		buf.WriteString(s)
		buf.WriteByte('\n')
	}
	return fsutil.WriteFileAtomic(fs, path, buf.Bytes(), 0o644)
}
