package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ============================================================================
// LENS CLI — Filter-aggregate dashboards from the command line
// ============================================================================

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
