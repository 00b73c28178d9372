package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tidyoux/ytsum/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// Global timeout for one run, long enough for a slow transcription.
	ctx, cancel := context.WithTimeout(ctx, 1*time.Hour)

	code := cli.Execute(ctx)
	cancel()
	stop()
	os.Exit(code)
}
