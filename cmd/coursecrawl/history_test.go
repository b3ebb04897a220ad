package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/coursecrawl/internal/database"
	"github.com/nao1215/coursecrawl/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history [source]" {
		t.Errorf("expected use 'history [source]', got %q", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected non-empty descriptions")
	}

	for _, tt := range []struct{ name, shorthand string }{
		{"urls", "u"},
		{"list-sources", "L"},
		{"json", "j"},
	} {
		flag := cmd.Flags().Lookup(tt.name)
		if flag == nil {
			t.Errorf("expected %s flag", tt.name)
			continue
		}
		if flag.Shorthand != tt.shorthand {
			t.Errorf("expected shorthand %q for %s, got %q", tt.shorthand, tt.name, flag.Shorthand)
		}
	}
}

// TestRunHistoryCmdRequiresSourceForURLs tests argument validation before
// the database is opened.
func TestRunHistoryCmdRequiresSourceForURLs(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"history", "--urls"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "source name is required") {
		t.Errorf("expected missing source error, got %v", err)
	}
}

// setupHistoryStore opens a database holding two sources.
func setupHistoryStore(t *testing.T) *database.URLStore {
	t.Helper()

	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.SaveURLs(ctx, "brown", []string{
		"https://bulletin.brown.edu/courses/",
		"https://bulletin.brown.edu/",
	}); err != nil {
		t.Fatalf("SaveURLs() error = %v", err)
	}

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	crawled := model.NewSourceRun(model.NewCrawlTarget("brown", "https://bulletin.brown.edu/"))
	crawled.StartedAt = base
	crawled.Duration = 2500 * time.Millisecond
	crawled.URLs = []string{"https://bulletin.brown.edu/", "https://bulletin.brown.edu/courses/"}
	crawled.Discovered = 3
	crawled.Crawl = &model.CrawlResult{
		Platform: model.PlatformModernCampus,
		Failed:   []model.FailedURL{{URL: "https://bulletin.brown.edu/gone", Reason: "not found"}},
	}

	cached := model.NewSourceRun(model.NewCrawlTarget("brown", "https://bulletin.brown.edu/"))
	cached.StartedAt = base.Add(time.Hour)
	cached.URLs = crawled.URLs
	cached.Discovered = 2
	cached.Cached = true

	failed := model.NewSourceRun(model.NewCrawlTarget("yale", "https://catalog.yale.edu/"))
	failed.StartedAt = base.Add(2 * time.Hour)
	failed.Error = errors.New("crawl failed: invalid exclude pattern")
	failed.ErrorMessage = failed.Error.Error()

	for _, run := range []*model.SourceRun{crawled, cached, failed} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	return store
}

// TestListStoredSources tests listing sources in the database.
func TestListStoredSources(t *testing.T) {
	t.Parallel()

	t.Run("lists sources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listStoredSources(context.Background(), setupHistoryStore(t), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Stored sources (2)") {
			t.Errorf("expected source count, got:\n%s", out)
		}
		if strings.Index(out, "brown") > strings.Index(out, "yale") {
			t.Errorf("expected sorted sources, got:\n%s", out)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		t.Parallel()

		store, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()

		var buf bytes.Buffer
		if err := listStoredSources(context.Background(), store, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No sources found") {
			t.Errorf("expected empty message, got:\n%s", buf.String())
		}
	})
}

// TestPrintStoredURLs tests printing a stored URL set.
func TestPrintStoredURLs(t *testing.T) {
	t.Parallel()

	store := setupHistoryStore(t)

	t.Run("prints sorted urls one per line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := printStoredURLs(context.Background(), store, "brown", &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "https://bulletin.brown.edu/\nhttps://bulletin.brown.edu/courses/\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()

		err := printStoredURLs(context.Background(), store, "yale", io.Discard)
		if err == nil || !strings.Contains(err.Error(), "no stored urls") {
			t.Errorf("expected no stored urls error, got %v", err)
		}
	})
}

// TestListRunHistory tests run history output.
func TestListRunHistory(t *testing.T) {
	t.Parallel()

	store := setupHistoryStore(t)

	t.Run("text for one source", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), store, "brown", false, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Run history for brown (2 runs)") {
			t.Errorf("expected header, got:\n%s", out)
		}
		if strings.Contains(out, "yale") {
			t.Errorf("expected only brown runs, got:\n%s", out)
		}
		// Newest first.
		if strings.Index(out, "(cached)") > strings.Index(out, "3 discovered") {
			t.Errorf("expected cached run first, got:\n%s", out)
		}
	})

	t.Run("text for all sources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), store, "", false, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "all sources (3 runs)") || !strings.Contains(out, "error: crawl failed") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), store, "", true, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var runs []runJSON
		if err := json.Unmarshal(buf.Bytes(), &runs); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].Source != "yale" || runs[0].Error == "" {
			t.Errorf("expected failed yale run first, got %+v", runs[0])
		}
		last := runs[2]
		if last.Platform != "modern_campus" || last.Failed != 1 || last.DurationMS != 2500 {
			t.Errorf("unexpected oldest run: %+v", last)
		}
		if last.StartedAt != "2026-09-01T12:00:00Z" {
			t.Errorf("expected UTC start time, got %q", last.StartedAt)
		}
	})

	t.Run("no history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listRunHistory(context.Background(), store, "mit", false, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No run history found for mit") {
			t.Errorf("expected empty message, got:\n%s", buf.String())
		}
	})
}

// TestFormatRunResult tests the one-line outcome of a stored run.
func TestFormatRunResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  database.RunRecord
		want string
	}{
		{
			name: "error",
			rec:  database.RunRecord{Error: "crawl failed: root URL must be an absolute http or https URL"},
			want: "error: crawl failed: root URL must be an abs...",
		},
		{
			name: "cached",
			rec:  database.RunRecord{Kept: 12, Discovered: 12, Cached: true},
			want: "12 urls (cached)",
		},
		{
			name: "crawled with drops and failures",
			rec: database.RunRecord{
				Kept: 10, Discovered: 12, Failed: 2,
				Platform: model.PlatformModernCampus, Duration: 1500 * time.Millisecond,
			},
			want: "10 urls, 12 discovered, 2 failed, modern_campus, 1.5s",
		},
		{
			name: "crawled cleanly",
			rec:  database.RunRecord{Kept: 5, Discovered: 5, Platform: model.PlatformDefault, Duration: time.Second},
			want: "5 urls, default, 1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatRunResult(tt.rec); got != tt.want {
				t.Errorf("formatRunResult() = %q, want %q", got, tt.want)
			}
		})
	}
}
