package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the section cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store := openCache()
		defer store.Close()

		stats, err := store.GetStats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read cache stats: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Section Cache ==="))
		fmt.Printf("  Sections:     %d\n", stats.Sections)
		fmt.Printf("  Total size:   %s\n", formatBytes(stats.TotalBytes))
		fmt.Printf("  Cache hits:   %d\n", stats.TotalHits)
		fmt.Printf("  Tokens saved: %s\n", green(formatTokens(stats.TokensSaved)))
		fmt.Println()
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all cached sections",
	Long: `Delete every cached section. The run ledger is preserved.

The next generate run will regenerate everything, at full cost.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store := openCache()
		defer store.Close()

		removed, err := store.Purge(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to purge cache: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s Purged %d cached sections\n\n", green("✓"), removed)
	},
}

func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
