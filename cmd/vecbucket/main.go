// Package main is the entry point of the vecbucket benchmark CLI.
//
// Usage:
//
//	vecbucket [flags] <command> [args]
//
// Commands:
//
//	bench     - Run a YAML-configured benchmark
//	generate  - Write a synthetic dataset
//	version   - Show version information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hupe1980/vecbucket/cmd/vecbucket/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
