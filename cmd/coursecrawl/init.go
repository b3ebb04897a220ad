package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
)

//go:embed templates/coursecrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a coursecrawl sources file",
		Long: `Init writes a commented sources file to the current directory.

The generated file includes:
- Default crawl depth, timeout and concurrency
- Example sources with scope and exclusion settings
- Commented cookie and header examples for protected catalogs

Examples:
  # Create .coursecrawl.yaml in current directory
  coursecrawl init

  # Create the file at a specific path
  coursecrawl init -o ~/.config/coursecrawl/sources.yaml

  # Force overwrite existing file
  coursecrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the sources file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing sources file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("sources file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/coursecrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read sources template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold session cookies.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write sources file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created sources file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Catalog root URLs and crawl scope")
	fmt.Fprintln(out, "  - Crawl depth and concurrency per source")
	fmt.Fprintln(out, "  - Exclusion patterns, cookies and headers")

	return nil
}
