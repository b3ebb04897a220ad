package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/coursecrawl/internal/config"
	"github.com/nao1215/coursecrawl/internal/database"
)

// NewHistoryCmd creates the history command.
// This command shows crawl runs and URL sets stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [source]",
		Short: "Show stored crawl runs and URLs",
		Long: `History displays what previous crawls stored in the local database.

Without flags it lists the recorded runs of a source, newest first, or of
every source when no name is given. Use --urls to print the stored URL set
of a source, one URL per line, for use by other tools.

Examples:
  # List every recorded run
  coursecrawl history

  # List runs of one source
  coursecrawl history brown

  # Print the stored URLs of a source
  coursecrawl history --urls brown > brown.txt

  # List all sources in the database
  coursecrawl history --list-sources`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("urls", "u", false,
		"Print the stored URLs of the specified source")
	cmd.Flags().BoolP("list-sources", "L", false,
		"List all sources in the database")
	cmd.Flags().BoolP("json", "j", false,
		"Output runs in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSources, err := cmd.Flags().GetBool("list-sources")
	if err != nil {
		return err
	}
	showURLs, err := cmd.Flags().GetBool("urls")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var source string
	if len(args) > 0 {
		source = args[0]
	}

	// Validate arguments before opening the database.
	if showURLs && source == "" {
		return errors.New("source name is required with --urls (use --list-sources to see available sources)")
	}

	store, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case listSources:
		return listStoredSources(ctx, store, out)
	case showURLs:
		return printStoredURLs(ctx, store, source, out)
	default:
		return listRunHistory(ctx, store, source, jsonOutput, out)
	}
}

// listStoredSources lists all sources with stored URLs or runs.
func listStoredSources(ctx context.Context, store *database.URLStore, w io.Writer) error {
	sources, err := store.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources found in the database.")
		fmt.Fprintln(w, "\nUse 'coursecrawl crawl <root-url>' to crawl a catalog.")
		return nil
	}

	fmt.Fprintf(w, "Stored sources (%d):\n\n", len(sources))
	for _, source := range sources {
		fmt.Fprintf(w, "  • %s\n", source)
	}
	fmt.Fprintln(w, "\nUse 'coursecrawl history <source>' to see the runs of a source.")

	return nil
}

// printStoredURLs prints the stored URL set of source, one per line.
func printStoredURLs(ctx context.Context, store *database.URLStore, source string, w io.Writer) error {
	urls, err := store.GetURLs(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get urls: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no stored urls for %s", source)
	}

	for _, u := range urls {
		fmt.Fprintln(w, u)
	}
	return nil
}

// runJSON is the JSON form of a stored run.
type runJSON struct {
	ID         int64  `json:"id"`
	Source     string `json:"source"`
	RootURL    string `json:"root_url"`
	Platform   string `json:"platform"`
	Discovered int    `json:"discovered"`
	Kept       int    `json:"kept"`
	Failed     int    `json:"failed_pages"`
	Cached     bool   `json:"cached"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

// listRunHistory lists the stored runs of source, or of every source when
// source is empty.
func listRunHistory(ctx context.Context, store *database.URLStore, source string, jsonOutput bool, w io.Writer) error {
	runs, err := store.ListRuns(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if jsonOutput {
		out := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			out = append(out, runJSON{
				ID:         r.ID,
				Source:     r.Source,
				RootURL:    r.RootURL,
				Platform:   r.Platform.String(),
				Discovered: r.Discovered,
				Kept:       r.Kept,
				Failed:     r.Failed,
				Cached:     r.Cached,
				Error:      r.Error,
				StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
				DurationMS: r.Duration.Milliseconds(),
			})
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	label := source
	if label == "" {
		label = "all sources"
	}

	if len(runs) == 0 {
		fmt.Fprintf(w, "No run history found for %s\n", label)
		fmt.Fprintln(w, "\nUse 'coursecrawl crawl' to crawl a catalog.")
		return nil
	}

	fmt.Fprintf(w, "Run history for %s (%d runs):\n\n", label, len(runs))
	fmt.Fprintf(w, "  %-6s  %-20s  %-16s  %s\n", "ID", "Date", "Source", "Result")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))

	for _, r := range runs {
		fmt.Fprintf(w, "  %-6d  %-20s  %-16s  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Source,
			formatRunResult(r),
		)
	}

	fmt.Fprintln(w, "\nUse 'coursecrawl history --urls <source>' to print the stored URLs.")

	return nil
}

// formatRunResult formats the outcome of a stored run in one short string.
func formatRunResult(r database.RunRecord) string {
	if r.Error != "" {
		return "error: " + truncate(r.Error, 40)
	}
	if r.Cached {
		return fmt.Sprintf("%d urls (cached)", r.Kept)
	}

	parts := []string{fmt.Sprintf("%d urls", r.Kept)}
	if r.Discovered != r.Kept {
		parts = append(parts, fmt.Sprintf("%d discovered", r.Discovered))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	parts = append(parts, r.Platform.String(), r.Duration.Round(time.Millisecond).String())
	return strings.Join(parts, ", ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
