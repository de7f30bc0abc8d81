package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockFetcher is a mock implementation of the fetcher.Fetcher interface for testing
type MockFetcher[T any] struct {
	FetchFunc  func(ctx context.Context, symbol string) (T, error)
	SourceName string

	mu    sync.Mutex
	calls map[string]int
}

// Fetch implements the Fetcher interface and records the call
func (m *MockFetcher[T]) Fetch(ctx context.Context, symbol string) (T, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	var zero T
	return zero, nil
}

// Source implements the Fetcher interface
func (m *MockFetcher[T]) Source() string {
	if m.SourceName != "" {
		return m.SourceName
	}
	return "mock"
}

// Calls returns how many times symbol was fetched
func (m *MockFetcher[T]) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// TotalCalls returns the number of Fetch calls across all symbols
func (m *MockFetcher[T]) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// NewMockFetcher creates a mock fetcher with predefined payloads and errors.
// Symbols missing from both maps return the zero value.
func NewMockFetcher[T any](payloads map[string]T, errs map[string]error) *MockFetcher[T] {
	return &MockFetcher[T]{
		FetchFunc: func(ctx context.Context, symbol string) (T, error) {
			if err, ok := errs[symbol]; ok {
				var zero T
				return zero, err
			}
			return payloads[symbol], nil
		},
	}
}

// ConcurrencyProbe records the highest number of callers inside a section
type ConcurrencyProbe struct {
	current atomic.Int64
	peak    atomic.Int64
}

// Enter marks the start of a concurrent section and returns the matching exit func
func (p *ConcurrencyProbe) Enter() func() {
	n := p.current.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return func() { p.current.Add(-1) }
}

// Peak returns the highest concurrency observed
func (p *ConcurrencyProbe) Peak() int {
	return int(p.peak.Load())
}

// Hold enters the probe, sleeps for d and exits
func (p *ConcurrencyProbe) Hold(d time.Duration) {
	exit := p.Enter()
	defer exit()
	time.Sleep(d)
}
