package output

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"stockfetch/internal/fsutil"
	"stockfetch/internal/stock"
)

// Snapshotter writes result files under one directory with a common name
// prefix.
type Snapshotter struct {
	fs     afero.Fs
	dir    string
	prefix string
	format Format
}

// NewSnapshotter creates a Snapshotter writing format files to dir.
func NewSnapshotter(fs afero.Fs, dir, prefix string, format Format) *Snapshotter {
	return &Snapshotter{fs: fs, dir: dir, prefix: prefix, format: format}
}

// IntermediatePath is the file written for checkpoint seq.
func (s *Snapshotter) IntermediatePath(seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_intermediate_%d.%s", s.prefix, seq, s.format.Ext()))
}

// FinalPath is the file written at the end of a run.
func (s *Snapshotter) FinalPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s", s.prefix, s.format.Ext()))
}

// SummaryPath is the prose summary written next to the final file.
func (s *Snapshotter) SummaryPath() string {
	return filepath.Join(s.dir, s.prefix+"_summary.txt")
}

// Snapshot writes an intermediate file. Its signature matches the
// pipeline's checkpoint callback.
func (s *Snapshotter) Snapshot(_ context.Context, seq int, profiles []stock.Profile) error {
	return s.write(s.IntermediatePath(seq), profiles)
}

// WriteFinal writes the final result file and returns its path.
func (s *Snapshotter) WriteFinal(profiles []stock.Profile) (string, error) {
	path := s.FinalPath()
	return path, s.write(path, profiles)
}

// WriteSummary writes the prose summary and returns its path.
func (s *Snapshotter) WriteSummary(profiles []stock.Profile) (string, error) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, profiles); err != nil {
		return "", err
	}
	path := s.SummaryPath()
	return path, fsutil.WriteFileAtomic(s.fs, path, buf.Bytes(), 0o644)
}

func (s *Snapshotter) write(path string, profiles []stock.Profile) error {
	var buf bytes.Buffer
	if err := Write(&buf, s.format, profiles); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return fsutil.WriteFileAtomic(s.fs, path, buf.Bytes(), 0o644)
}
