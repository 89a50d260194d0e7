// docgen generates AI-written documentation for a source repository:
// an architecture overview, one page per package with Mermaid diagrams,
// a dependency inventory, and an optional dependency audit. Generated
// sections are cached by content hash so unchanged code is never billed
// twice.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docgen",
	Short: "AI-powered documentation generator",
	Long: `docgen scans a repository, extracts its structure, and uses Claude to
write documentation: an architecture overview, per-package reference
pages with Mermaid diagrams, and a dependency inventory.

Generated sections are cached in .docgen/docgen.db by content hash, so
re-running on unchanged code costs nothing.

Typical session:
  docgen init        # Write .docgen/config.yaml
  docgen generate    # Generate the docs/ tree
  docgen status      # Review recent runs
  docgen cost        # Check the AI budget`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		} else {
			slog.SetLogLoggerLevel(slog.LevelWarn)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
