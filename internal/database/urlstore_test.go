package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *URLStore {
	t.Helper()

	store, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()

		dbPath := filepath.Join(dbDir, DBFileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if store.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", store.Path(), dbPath)
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		store, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := store.SaveURLs(context.Background(), "brown", []string{"https://a.example/"}); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}
		_ = store.Close()

		reopened, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		urls, err := reopened.GetURLs(context.Background(), "brown")
		if err != nil {
			t.Fatalf("GetURLs() error = %v", err)
		}
		if len(urls) != 1 {
			t.Errorf("expected stored URL to survive reopen, got %v", urls)
		}
	})
}

func TestURLStore_URLs(t *testing.T) {
	t.Parallel()

	t.Run("empty when nothing stored", func(t *testing.T) {
		t.Parallel()

		store := setupTestDB(t)
		urls, err := store.GetURLs(context.Background(), "unknown")
		if err != nil {
			t.Fatalf("GetURLs() error = %v", err)
		}
		if urls == nil || len(urls) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", urls)
		}
	})

	t.Run("stores sorted unique set", func(t *testing.T) {
		t.Parallel()

		store := setupTestDB(t)
		ctx := context.Background()

		input := []string{
			"https://catalog.example.edu/b",
			"https://catalog.example.edu/a",
			"https://catalog.example.edu/b",
			"",
		}
		if err := store.SaveURLs(ctx, "brown", input); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}

		got, err := store.GetURLs(ctx, "brown")
		if err != nil {
			t.Fatalf("GetURLs() error = %v", err)
		}
		want := []string{"https://catalog.example.edu/a", "https://catalog.example.edu/b"}
		if !slices.Equal(got, want) {
			t.Errorf("GetURLs() = %v, want %v", got, want)
		}
	})

	t.Run("save replaces previous set", func(t *testing.T) {
		t.Parallel()

		store := setupTestDB(t)
		ctx := context.Background()

		if err := store.SaveURLs(ctx, "brown", []string{"https://old.example/"}); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}
		if err := store.SaveURLs(ctx, "brown", []string{"https://new.example/"}); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}

		got, err := store.GetURLs(ctx, "brown")
		if err != nil {
			t.Fatalf("GetURLs() error = %v", err)
		}
		if !slices.Equal(got, []string{"https://new.example/"}) {
			t.Errorf("GetURLs() = %v", got)
		}
	})

	t.Run("sources are isolated", func(t *testing.T) {
		t.Parallel()

		store := setupTestDB(t)
		ctx := context.Background()

		if err := store.SaveURLs(ctx, "brown", []string{"https://same.example/"}); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}
		if err := store.SaveURLs(ctx, "yale", []string{"https://same.example/"}); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}
		if err := store.SaveURLs(ctx, "brown", nil); err != nil {
			t.Fatalf("SaveURLs() error = %v", err)
		}

		yale, err := store.GetURLs(ctx, "yale")
		if err != nil {
			t.Fatalf("GetURLs() error = %v", err)
		}
		if len(yale) != 1 {
			t.Errorf("expected yale URLs untouched, got %v", yale)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		store := setupTestDB(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := store.SaveURLs(ctx, "brown", []string{"https://a.example/"}); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func newTestRun(name string, started time.Time) *model.SourceRun {
	target := model.NewCrawlTarget(name, "https://"+name+".example.edu/catalog/")
	run := model.NewSourceRun(target)
	run.StartedAt = started
	run.Duration = 1500 * time.Millisecond
	run.Discovered = 10
	run.URLs = []string{"https://" + name + ".example.edu/catalog/a"}
	run.Crawl = &model.CrawlResult{
		Platform: model.PlatformModernCampus,
		Failed:   []model.FailedURL{{URL: "https://" + name + ".example.edu/x", Reason: "page not found"}},
	}
	return run
}

func TestURLStore_Runs(t *testing.T) {
	t.Parallel()

	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := newTestRun("brown", base)
	second := newTestRun("brown", base.Add(time.Hour))
	second.Cached = true
	second.Crawl = nil
	second.Error = errors.New("crawl failed")
	other := newTestRun("yale", base.Add(30*time.Minute))

	for _, run := range []*model.SourceRun{first, second, other} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	t.Run("filter by source newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := store.ListRuns(ctx, "brown")
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}

		latest := runs[0]
		if !latest.StartedAt.Equal(base.Add(time.Hour)) {
			t.Errorf("expected newest run first, got %v", latest.StartedAt)
		}
		if !latest.Cached {
			t.Error("expected cached run")
		}
		if latest.Error != "crawl failed" {
			t.Errorf("Error = %q", latest.Error)
		}
		if latest.Platform != model.PlatformDefault {
			t.Errorf("Platform = %q, want default for a cached run", latest.Platform)
		}

		older := runs[1]
		if older.Platform != model.PlatformModernCampus {
			t.Errorf("Platform = %q", older.Platform)
		}
		if older.Discovered != 10 || older.Kept != 1 || older.Failed != 1 {
			t.Errorf("unexpected counts: %+v", older)
		}
		if older.Duration != 1500*time.Millisecond {
			t.Errorf("Duration = %v", older.Duration)
		}
		if older.RootURL != "https://brown.example.edu/catalog/" {
			t.Errorf("RootURL = %q", older.RootURL)
		}
		if older.Error != "" {
			t.Errorf("expected no error, got %q", older.Error)
		}
	})

	t.Run("all sources", func(t *testing.T) {
		t.Parallel()

		runs, err := store.ListRuns(ctx, "")
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[1].Source != "yale" {
			t.Errorf("expected yale in the middle, got %q", runs[1].Source)
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()

		runs, err := store.ListRuns(ctx, "harvard")
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
	})
}

func TestURLStore_ListSources(t *testing.T) {
	t.Parallel()

	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.SaveURLs(ctx, "yale", []string{"https://a.example/"}); err != nil {
		t.Fatalf("SaveURLs() error = %v", err)
	}
	if err := store.SaveRun(ctx, newTestRun("brown", time.Now())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := store.SaveRun(ctx, newTestRun("yale", time.Now())); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := store.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if !slices.Equal(got, []string{"brown", "yale"}) {
		t.Errorf("ListSources() = %v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "stored format", input: formatTimestamp(want)},
		{name: "RFC3339", input: "2026-01-02T03:04:05Z"},
		{name: "SQLite default", input: "2026-01-02 03:04:05"},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if tt.zero {
				if !got.IsZero() {
					t.Errorf("expected zero time, got %v", got)
				}
				return
			}
			if !got.Equal(want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}
