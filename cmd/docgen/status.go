package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/sunprojectca/DocGen/internal/cache"
	"github.com/sunprojectca/DocGen/internal/types"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent documentation runs",
	Long:  `Display the run ledger: recent generation runs with their outcomes, token usage, and cost.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store := openCache()
		defer store.Close()

		runs, err := store.ListRuns(ctx, statusLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Recent Runs ==="))

		if len(runs) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("  %s\n\n", gray("No runs recorded. Try: docgen generate"))
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, run := range runs {
			icon := gray("○")
			switch run.Status {
			case types.RunCompleted:
				icon = green("●")
			case types.RunFailed:
				icon = red("✗")
			case types.RunCanceled:
				icon = yellow("⚠")
			case types.RunRunning:
				icon = yellow("●")
			}

			fmt.Printf("  %s %s  %s\n", icon, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Status)
			fmt.Printf("    Run:      %s\n", gray(run.ID))
			fmt.Printf("    Scanned:  %d files, %d packages\n", run.FilesScanned, run.Packages)
			fmt.Printf("    Sections: %d new, %d cached\n", run.SectionsNew, run.SectionsCache)
			if run.InputTokens > 0 || run.OutputTokens > 0 {
				fmt.Printf("    Tokens:   %s in / %s out ($%.4f)\n",
					formatTokens(run.InputTokens), formatTokens(run.OutputTokens), run.CostUSD)
			}
			if run.FinishedAt != nil {
				fmt.Printf("    Duration: %s\n", run.Duration().Round(100*time.Millisecond))
			}
			if run.Error != "" {
				fmt.Printf("    Error:    %s\n", red(run.Error))
			}
			fmt.Println()
		}
	},
}

// openCache opens the cache in the current directory, exiting with a hint
// when docgen has not been initialized.
func openCache() *cache.Cache {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
		os.Exit(1)
	}
	path := filepath.Join(cwd, cache.DefaultPath)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: no cache at %s (run `docgen init` first)\n", path)
		os.Exit(1)
	}
	store, err := cache.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open cache: %v\n", err)
		os.Exit(1)
	}
	return store
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to show")
}
