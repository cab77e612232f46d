package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecbucket/bucket"
	"github.com/hupe1980/vecbucket/cmd/vecbucket/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, build.String())
		if verbose {
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
			fmt.Fprintf(out, "  kinds:  %v\n", bucket.Kinds())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
