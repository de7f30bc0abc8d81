package coordinator

import (
	"context"

	"github.com/sourcegraph/conc"

	"stockfetch/internal/fetcher"
)

// Op processes one key to completion, including its own retries.
type Op[T any] func(ctx context.Context, key string) fetcher.Result[T]

// Coordinator runs an Op over a list of keys with a fixed number of workers
// and streams the results back as they complete.
type Coordinator[T any] struct {
	workers int
	op      Op[T]
}

// New creates a new Coordinator. A worker count below one is raised to one.
func New[T any](workers int, op Op[T]) *Coordinator[T] {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator[T]{
		workers: workers,
		op:      op,
	}
}

// Workers returns the size of the worker pool.
func (c *Coordinator[T]) Workers() int {
	return c.workers
}

// Run hands keys to the worker pool in input order and returns a channel
// that yields one Result per processed key in completion order. The channel
// is closed once every worker has exited.
//
// Cancelling ctx stops the hand-out of new keys. A claimed key still gets
// its Result; how the Op reacts to the cancelled ctx is up to the Op. The
// caller must drain the channel.
func (c *Coordinator[T]) Run(ctx context.Context, keys []string) <-chan fetcher.Result[T] {
	// Unbuffered: a key is only handed out when a worker is free to take it.
	queue := make(chan string)
	results := make(chan fetcher.Result[T], c.workers)

	go func() {
		defer close(queue)
		for _, key := range keys {
			if ctx.Err() != nil {
				return
			}
			select {
			case queue <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg := conc.NewWaitGroup()
	for i := 0; i < c.workers; i++ {
		wg.Go(func() {
			for key := range queue {
				results <- c.op(ctx, key)
			}
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
