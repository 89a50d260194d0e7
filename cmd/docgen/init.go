package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/sunprojectca/DocGen/internal/cache"
	"github.com/sunprojectca/DocGen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docgen in the current directory",
	Long: `Initialize docgen by creating a .docgen/ directory.

This creates:
  - .docgen/config.yaml (commented starter configuration)
  - .docgen/docgen.db (SQLite section cache and run ledger)

Example:
  cd ~/myproject
  docgen init
  docgen generate`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get current directory: %v\n", err)
			os.Exit(1)
		}

		cfgPath, err := config.Init(cwd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Opening the cache once creates the database and its schema.
		dbPath := filepath.Join(cwd, cache.DefaultPath)
		store, err := cache.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize cache: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized docgen\n\n", green("✓"))
		fmt.Printf("  Config: %s\n", cyan(cfgPath))
		fmt.Printf("  Cache:  %s\n", cyan(dbPath))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("export ANTHROPIC_API_KEY=...   # if not already set"))
		fmt.Printf("  %s\n", gray("docgen generate --dry-run       # preview what will be documented"))
		fmt.Printf("  %s\n", gray("docgen generate"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
