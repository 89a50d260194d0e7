package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/sunprojectca/DocGen/internal/ai"
	"github.com/sunprojectca/DocGen/internal/config"
	"github.com/sunprojectca/DocGen/internal/generate"
	"github.com/sunprojectca/DocGen/internal/mermaid"
	"github.com/sunprojectca/DocGen/internal/parser"
	"github.com/sunprojectca/DocGen/internal/scanner"
)

var (
	diagramRepo   string
	diagramAI     bool
	diagramLayout bool
	diagramOutput string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [package-path]",
	Short: "Print a Mermaid diagram for a package or the whole repository",
	Long: `Print a Mermaid diagram to stdout.

Without arguments prints the repository package graph. With a package
path prints that package's structure diagram. The default diagrams are
built deterministically from parsed structure; --ai asks the model to
propose one instead (the result is sanitized before printing).

Example:
  docgen diagram                      # Repository package graph
  docgen diagram --layout             # Repository directory layout
  docgen diagram internal/scanner     # One package's structure
  docgen diagram internal/scanner --ai`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		emit := func(diagram string) {
			fenced := mermaid.Fence(diagram)
			if diagramOutput == "" {
				fmt.Print(fenced)
				return
			}
			if err := os.WriteFile(diagramOutput, []byte(fenced), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		cfg, err := config.Load(diagramRepo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		scanRes, err := scanner.New(cfg).Scan(diagramRepo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		infos := make([]*parser.PackageInfo, 0, len(scanRes.Packages))
		for _, pkg := range scanRes.Packages {
			infos = append(infos, parser.ParsePackage(diagramRepo, pkg))
		}

		if len(args) == 0 {
			if diagramLayout {
				emit(mermaid.Layout(generate.RepoName(diagramRepo), infos))
				return
			}
			emit(mermaid.PackageGraph(generate.ModuleName(diagramRepo), infos))
			return
		}

		target := args[0]
		var info *parser.PackageInfo
		for _, candidate := range infos {
			if candidate.Pkg.Path == target {
				info = candidate
				break
			}
		}
		if info == nil {
			fmt.Fprintf(os.Stderr, "Error: no package %q found", target)
			fmt.Fprintf(os.Stderr, " (known: ")
			for i, candidate := range infos {
				if i > 0 {
					fmt.Fprint(os.Stderr, ", ")
				}
				fmt.Fprint(os.Stderr, candidate.Pkg.Path)
			}
			fmt.Fprintln(os.Stderr, ")")
			os.Exit(1)
		}

		if !diagramAI {
			emit(mermaid.ClassDiagram(info))
			return
		}

		gate, err := generate.NewBudgetGate(diagramRepo)
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
		diagram, err := gen.SuggestDiagram(ctx, info)
		if err != nil {
			// Proposal failed or did not pass sanitization; the
			// deterministic diagram is always available.
			fmt.Fprintf(os.Stderr, "Warning: %v (falling back to structural diagram)\n", err)
			emit(mermaid.ClassDiagram(info))
			return
		}
		emit(diagram.Source)
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	diagramCmd.Flags().StringVar(&diagramRepo, "repo", ".", "Repository to diagram")
	diagramCmd.Flags().BoolVar(&diagramAI, "ai", false, "Ask the model to propose the diagram")
	diagramCmd.Flags().BoolVar(&diagramLayout, "layout", false, "Print the repository directory layout instead of the import graph")
	diagramCmd.Flags().StringVarP(&diagramOutput, "output", "o", "", "Write the diagram to a file instead of stdout")
}
