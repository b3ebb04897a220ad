package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for coursecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coursecrawl",
		Short: "Resilient course catalog crawler",
		Long: `coursecrawl discovers the course pages of university catalogs.

Each catalog is crawled breadth-first within its scope. Pages are fetched
over plain HTTP first and rendered in a headless browser when they need
JavaScript or return an anti-bot challenge. Discovered URLs are re-checked
and stored so later runs can reuse them.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
