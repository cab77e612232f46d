package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecbucket/bench"
)

var benchFile string

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a benchmark",
	Long: `Run a benchmark described by a YAML file.

Reports are written to the sinks of the file (stdout by default), one per
routing value and search mode.

Example:
  vecbucket bench -f bench.yaml --log-level debug`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchFile == "" {
			return fmt.Errorf("config file is required, use -f flag")
		}
		cfg, err := bench.LoadConfig(benchFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		ctx := cmd.Context()
		r, err := bench.NewRunnerFromConfig(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		reports, err := r.Run(ctx, cfg)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d reports\n", len(reports))
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().StringVarP(&benchFile, "file", "f", "", "benchmark config (YAML)")
	rootCmd.AddCommand(benchCmd)
}
