package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "vecbucket",
	Short: "Benchmark bucketed vector search strategies",
	Long: `vecbucket - recall and cost benchmarks for bucketed vector search.

Buckets hold a slice of the collection and search it with one of four
strategies: bruteforce, ivf, ivf-reference (faiss) and sketch.

Examples:
  # Generate a synthetic dataset
  vecbucket generate --out ./data/synth --n 100000 --dim 64 --sketch-bits 128

  # Run a benchmark
  vecbucket bench -f bench.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by main.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
}
