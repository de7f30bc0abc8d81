package fetcher

// Outcome tags a Result as a success or a failure.
type Outcome int

const (
	// OutcomeSuccess means Payload holds the fetched value.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means Err holds the last error seen.
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Result represents the outcome of processing one key.
// It's designed to be sent through channels from worker goroutines
// to the pipeline that records and aggregates the payloads.
type Result[T any] struct {
	// Key identifies the work item, usually a ticker symbol.
	Key string

	Outcome Outcome

	// Payload is only meaningful when Outcome is OutcomeSuccess.
	Payload T

	// Err is the last error returned by the fetch function.
	Err error

	// Attempts is the number of times the fetch function was called.
	Attempts int
}

// Succeeded builds a success result.
func Succeeded[T any](key string, payload T, attempts int) Result[T] {
	return Result[T]{Key: key, Outcome: OutcomeSuccess, Payload: payload, Attempts: attempts}
}

// Failed builds a failure result.
func Failed[T any](key string, err error, attempts int) Result[T] {
	return Result[T]{Key: key, Outcome: OutcomeFailure, Err: err, Attempts: attempts}
}

// OK reports whether the result carries a payload.
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeSuccess
}
