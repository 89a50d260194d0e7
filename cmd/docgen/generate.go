package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/generate"
	"github.com/sunprojectca/DocGen/internal/types"
)

var (
	generateOutput   string
	generatePackages []string
	generateForce    bool
	generateDryRun   bool
	generateNoAI     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Generate documentation for a repository",
	Long: `Scan the repository, extract package structure and declarations, and
generate the docs/ tree. Packages whose code is unchanged since the last
run are served from the cache at no cost.

Ctrl-C cancels cleanly: the run is recorded as canceled and sections
already generated stay cached.

Example:
  docgen generate                        # Document the current directory
  docgen generate ../other               # Document another repository
  docgen generate --force                # Regenerate everything, ignoring the cache
  docgen generate --dry-run              # Show what would be documented
  docgen generate --no-ai                # Structure-only pages, no API calls
  docgen generate --packages 'internal'  # Only packages under internal/`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo := "."
		if len(args) > 0 {
			repo = args[0]
		}

		cfg, err := config.Load(repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if generateOutput != "" {
			cfg.OutputDir = generateOutput
		}

		opts := generate.Options{
			RepoPath: repo,
			Packages: generatePackages,
			Force:    generateForce,
			DryRun:   generateDryRun,
			NoAI:     generateNoAI,
		}

		p, err := generate.New(repo, cfg, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer p.Close()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== docgen ==="))

		result, err := p.Run(ctx, opts)
		printRunSummary(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// printRunSummary reports what a run did, whatever its outcome.
func printRunSummary(result *generate.Result) {
	if result == nil || result.Run == nil {
		return
	}
	run := result.Run

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Println()
	switch run.Status {
	case types.RunCompleted:
		fmt.Printf("%s Run complete\n", green("✓"))
	case types.RunCanceled:
		fmt.Printf("%s Run canceled\n", yellow("⚠"))
	case types.RunFailed:
		fmt.Printf("%s Run failed\n", red("✗"))
	}

	fmt.Printf("  Scanned:   %d files in %d packages\n", run.FilesScanned, run.Packages)
	if run.SectionsNew > 0 || run.SectionsCache > 0 {
		fmt.Printf("  Sections:  %d generated, %s\n", run.SectionsNew,
			gray(fmt.Sprintf("%d from cache", run.SectionsCache)))
	}
	if run.InputTokens > 0 || run.OutputTokens > 0 {
		fmt.Printf("  Tokens:    %s in / %s out\n",
			formatTokens(run.InputTokens), formatTokens(run.OutputTokens))
		fmt.Printf("  Cost:      $%.4f\n", run.CostUSD)
	}
	if len(result.Written) > 0 {
		fmt.Printf("  Pages:     %d written\n", len(result.Written))
	}
	if len(result.Deps) > 0 {
		fmt.Printf("  Deps:      %d discovered\n", len(result.Deps))
	}
	fmt.Printf("  Duration:  %s\n", run.Duration().Round(100*time.Millisecond))

	for _, w := range result.Warnings {
		fmt.Printf("  %s %s\n", yellow("⚠"), w)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateOutput, "output", "", "Output directory (overrides config)")
	generateCmd.Flags().StringSliceVar(&generatePackages, "packages", nil, "Only document packages matching these globs")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Regenerate all sections, ignoring the cache")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Scan and report only; no AI calls, no writes")
	generateCmd.Flags().BoolVar(&generateNoAI, "no-ai", false, "Render structure-only pages without AI calls")
}
