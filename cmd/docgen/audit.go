package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/sunprojectca/DocGen/internal/ai"
	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/deps"
	"github.com/sunprojectca/DocGen/internal/generate"
	"github.com/sunprojectca/DocGen/internal/render"
	"github.com/sunprojectca/DocGen/internal/types"
)

var (
	auditNoAI  bool
	auditWrite bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [path]",
	Short: "Assess third-party dependencies for supply-chain concerns",
	Long: `Discover the repository's dependency manifests (go.mod, package.json,
requirements.txt, pyproject.toml) and ask the model to flag anything a
maintainer should look at.

The output is advisory: it is a reviewer's read of the dependency list,
not a vulnerability scan against a CVE database.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		auditRepo := "."
		if len(args) == 1 {
			auditRepo = args[0]
		}

		depList, warnings, err := deps.Discover(auditRepo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", yellow("⚠"), w)
		}

		if len(depList) == 0 {
			fmt.Println("No dependency manifests found.")
			return
		}

		byEco := deps.CountByEcosystem(depList)
		fmt.Printf("\nFound %d dependencies (", len(depList))
		first := true
		for eco, n := range byEco {
			if !first {
				fmt.Print(", ")
			}
			fmt.Printf("%s: %d", eco, n)
			first = false
		}
		fmt.Println(")")

		if auditNoAI {
			fmt.Println()
			for _, d := range depList {
				scope := ""
				if d.Indirect {
					scope = " (indirect)"
				}
				fmt.Printf("  %-50s %-15s %s%s\n", d.Name, d.Version, d.Ecosystem, scope)
			}
			fmt.Println()
			return
		}

		cfg, err := config.Load(auditRepo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		gate, err := generate.NewBudgetGate(auditRepo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		gen, err := ai.NewGenerator(&ai.Config{
			Model:       cfg.Model,
			SimpleModel: cfg.SimpleModel,
			CostTracker: gate,
			RunID:       uuid.NewString(),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Assessing...")
		report, err := gen.AssessDependencies(ctx, depList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printAuditReport(report)

		if auditWrite {
			writeAuditPage(auditRepo, cfg, report, depList)
		}
	},
}

func printAuditReport(report *ai.AuditReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan("=== Dependency Audit ==="))
	fmt.Printf("%s\n\n", report.Summary)

	if len(report.Findings) == 0 {
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s No findings\n\n", green("✓"))
	}

	for _, f := range report.Findings {
		sevColor := color.New(color.FgHiBlack).SprintFunc()
		switch f.Severity {
		case "high":
			sevColor = color.New(color.FgRed, color.Bold).SprintFunc()
		case "medium":
			sevColor = color.New(color.FgYellow).SprintFunc()
		}
		fmt.Printf("  %s %s (%s)\n", sevColor(fmt.Sprintf("[%s]", f.Severity)), f.Name, f.Ecosystem)
		fmt.Printf("    %s\n", f.Reason)
		if f.Recommendation != "" {
			fmt.Printf("    → %s\n", f.Recommendation)
		}
		fmt.Println()
	}

	if report.Usage.InputTokens > 0 || report.Usage.OutputTokens > 0 {
		fmt.Printf("  Tokens: %s in / %s out\n\n",
			formatTokens(report.Usage.InputTokens), formatTokens(report.Usage.OutputTokens))
	}
}

// writeAuditPage persists the report into the docs tree.
func writeAuditPage(repoPath string, cfg *config.Config, report *ai.AuditReport, depList []types.Dependency) {
	path, err := render.New(filepath.Join(repoPath, cfg.OutputDir)).WriteAudit(&render.Site{
		RepoName:    filepath.Base(repoPath),
		GeneratedAt: time.Now().UTC(),
		Model:       report.Model,
		Deps:        depList,
		Audit:       report,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s Wrote %s\n\n", green("✓"), path)
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditNoAI, "no-ai", false, "List dependencies without the AI assessment")
	auditCmd.Flags().BoolVar(&auditWrite, "write", false, "Also write the report to the docs tree (audit.md)")
}
