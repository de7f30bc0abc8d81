package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockfetch/internal/cli"
)

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown. The attempt in hand
	// finishes and is recorded; symbols waiting or between retries are left
	// for the next run. A second signal exits at once.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing in-flight symbols...")
		cancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "Received second interrupt signal, exiting")
		os.Exit(1)
	}()

	cli.ExecuteContext(ctx)
}
