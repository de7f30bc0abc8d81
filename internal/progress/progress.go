// Package progress persists the payload of every successfully fetched
// symbol so an interrupted batch can resume without repeating work.
//
// A Progress value is an in-memory view over a Backend. Every Record is
// written through to the backend before it returns, one writer at a time,
// so a crash loses at most the item that was in flight. Entries whose write
// failed are retried by the next Record and by Flush.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrCorruptProgress is matched by CorruptProgressError.
	ErrCorruptProgress = errors.New("corrupt progress data")

	// ErrPersistence is matched by PersistenceError.
	ErrPersistence = errors.New("progress persistence failed")
)

// CorruptProgressError reports progress data that cannot be parsed. It is
// never repaired automatically.
type CorruptProgressError struct {
	Source string
	Err    error
}

func (e *CorruptProgressError) Error() string {
	return fmt.Sprintf("corrupt progress in %s: %v", e.Source, e.Err)
}

func (e *CorruptProgressError) Unwrap() error { return e.Err }

func (e *CorruptProgressError) Is(target error) bool { return target == ErrCorruptProgress }

// PersistenceError reports a failed write for one key.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist progress for %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Backend is durable key/value storage for encoded payloads.
type Backend interface {
	// Load returns every stored entry. Absent storage yields an empty map.
	Load(ctx context.Context) (map[string]json.RawMessage, error)

	// Save replaces the stored entries with entries.
	Save(ctx context.Context, entries map[string]json.RawMessage) error
}

// Appender is implemented by backends that can persist one entry without
// rewriting the others. Put must not overwrite an existing key.
type Appender interface {
	Put(ctx context.Context, key string, payload json.RawMessage) error
}

// Progress maps symbols to the payload of their last successful fetch.
type Progress[T any] struct {
	mu      sync.Mutex
	backend Backend
	raw     map[string]json.RawMessage
	entries map[string]T

	// unsaved holds keys whose last write failed.
	unsaved map[string]struct{}
}

// Open loads the backend and decodes every entry as T.
func Open[T any](ctx context.Context, backend Backend) (*Progress[T], error) {
	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = make(map[string]json.RawMessage)
	}

	entries := make(map[string]T, len(raw))
	for key, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, &CorruptProgressError{
				Source: fmt.Sprintf("entry %q", key),
				Err:    err,
			}
		}
		entries[key] = v
	}

	return &Progress[T]{
		backend: backend,
		raw:     raw,
		entries: entries,
		unsaved: make(map[string]struct{}),
	}, nil
}

// Has reports whether key already has a recorded payload.
func (p *Progress[T]) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	return ok
}

// Get returns the recorded payload for key.
func (p *Progress[T]) Get(key string) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.entries[key]
	return v, ok
}

// Len returns the number of recorded keys.
func (p *Progress[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Keys returns the recorded keys in sorted order.
func (p *Progress[T]) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unsaved returns the number of recorded entries not yet in the backend.
func (p *Progress[T]) Unsaved() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.unsaved)
}

// Record adds payload under key and persists it before returning. A key
// that is already recorded is left untouched. Entries left unsaved by
// earlier failures are written first.
//
// When the write fails the entry stays in memory and is retried later, and
// a *PersistenceError is returned.
func (p *Progress[T]) Record(ctx context.Context, key string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &PersistenceError{Key: key, Err: fmt.Errorf("encode payload: %w", err)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[key]; ok {
		return nil
	}
	p.entries[key] = payload
	p.raw[key] = data
	p.unsaved[key] = struct{}{}

	err = p.persist(ctx)
	if _, failed := p.unsaved[key]; failed {
		return &PersistenceError{Key: key, Err: err}
	}
	return nil
}

// Flush writes every unsaved entry to the backend.
func (p *Progress[T]) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.persist(ctx); err != nil {
		return &PersistenceError{Key: "*", Err: err}
	}
	return nil
}

// persist writes the unsaved entries. Appenders get one Put per key;
// other backends get the whole map. Callers hold mu.
func (p *Progress[T]) persist(ctx context.Context) error {
	if len(p.unsaved) == 0 {
		return nil
	}

	a, ok := p.backend.(Appender)
	if !ok {
		if err := p.backend.Save(ctx, p.raw); err != nil {
			return err
		}
		clear(p.unsaved)
		return nil
	}

	keys := make([]string, 0, len(p.unsaved))
	for k := range p.unsaved {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := a.Put(ctx, k, p.raw[k]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
			continue
		}
		delete(p.unsaved, k)
	}
	return errors.Join(errs...)
}
