package fetcher

import (
	"context"
	"fmt"
)

// Func retrieves the payload for a single key. It may perform arbitrary I/O
// and is assumed to be fallible; the pipeline wraps it in a retry policy.
type Func[T any] func(ctx context.Context, key string) (T, error)

// Fetcher is implemented by every data source that can produce a payload for
// a ticker symbol.
type Fetcher[T any] interface {
	// Fetch retrieves the payload for symbol.
	Fetch(ctx context.Context, symbol string) (T, error)

	// Source names the upstream service, e.g. "yahoo" or "alphavantage".
	Source() string
}

// FuncOf adapts a Fetcher to the Func signature consumed by the pipeline.
func FuncOf[T any](f Fetcher[T]) Func[T] {
	return f.Fetch
}

// Key returns a Redis-compatible hierarchical key.
// Format: fetcher:{source}:{identifier}
// Examples:
//   - fetcher:yahoo:AAPL
//   - fetcher:alphavantage:progress
func Key(source, id string) string {
	return fmt.Sprintf("fetcher:%s:%s", source, id)
}
