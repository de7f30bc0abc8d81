package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"stockfetch/internal/fsutil"
)

// FileBackend stores progress as a single JSON object in a file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend creates a backend for path on fsys.
func NewFileBackend(fsys afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fsys, path: path}
}

// Load reads the progress file. A missing or empty file yields an empty map.
func (b *FileBackend) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress file %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &CorruptProgressError{Source: b.path, Err: err}
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return entries, nil
}

// Save atomically replaces the progress file.
func (b *FileBackend) Save(ctx context.Context, entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return fsutil.WriteFileAtomic(b.fs, b.path, data, 0o644)
}
