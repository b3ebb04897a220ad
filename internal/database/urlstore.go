package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/coursecrawl/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "coursecrawl.db"

// ErrDatabaseNotFound is returned by Open when the database file does not
// exist and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("database not found")

// URLStore persists crawled URL sets and run summaries.
type URLStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures URLStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a URLStore in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*URLStore, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &URLStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Path returns the database file path.
func (s *URLStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *URLStore) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *URLStore) createTables() error {
	schema := `
	-- Latest URL set per source
	CREATE TABLE IF NOT EXISTS urls (
		source TEXT NOT NULL,
		url TEXT NOT NULL,
		stored_at TEXT NOT NULL,
		PRIMARY KEY (source, url)
	);

	-- One row per pipeline run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		root_url TEXT NOT NULL,
		platform TEXT NOT NULL,
		discovered INTEGER NOT NULL DEFAULT 0,
		kept INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		cached INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveURLs replaces the stored URL set of source with urls.
// Duplicates and empty strings are dropped.
func (s *URLStore) SaveURLs(ctx context.Context, source string, urls []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM urls WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to clear urls: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO urls (source, url, stored_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTimestamp(time.Now())
	for _, u := range model.SortedUnique(urls) {
		if _, err = stmt.ExecContext(ctx, source, u, now); err != nil {
			return fmt.Errorf("failed to insert url: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit urls: %w", err)
	}
	return nil
}

// GetURLs returns the stored URL set of source, sorted.
// The result is empty, not nil, when nothing is stored.
func (s *URLStore) GetURLs(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM urls WHERE source = ? ORDER BY url`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// RunRecord is the stored summary of one pipeline run.
type RunRecord struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Source is the source name.
	Source string

	// RootURL is the crawl root.
	RootURL string

	// Platform is the detected catalog platform.
	Platform model.Platform

	// Discovered is the number of URLs the crawl produced.
	Discovered int

	// Kept is the number of URLs left after prefiltering.
	Kept int

	// Failed is the number of pages that failed to fetch.
	Failed int

	// Cached is true when the URLs were loaded from the store.
	Cached bool

	// Error is the run error message, empty on success.
	Error string

	// StartedAt is when the run started.
	StartedAt time.Time

	// Duration is the total run time.
	Duration time.Duration
}

// NewRunRecord summarizes run for storage.
func NewRunRecord(run *model.SourceRun) *RunRecord {
	rec := &RunRecord{
		Source:     run.Name(),
		Platform:   run.PlatformName(),
		Discovered: run.Discovered,
		Kept:       len(run.URLs),
		Failed:     run.FailedPages(),
		Cached:     run.Cached,
		StartedAt:  run.StartedAt,
		Duration:   run.Duration,
	}
	if run.Target != nil {
		rec.RootURL = run.Target.RootURL
	}
	if run.Error != nil {
		rec.Error = run.Error.Error()
	} else {
		rec.Error = run.ErrorMessage
	}
	return rec
}

// SaveRun records a summary of run.
func (s *URLStore) SaveRun(ctx context.Context, run *model.SourceRun) error {
	rec := NewRunRecord(run)

	query := `
	INSERT INTO runs (source, root_url, platform, discovered, kept, failed, cached, error, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.Source,
		rec.RootURL,
		rec.Platform.String(),
		rec.Discovered,
		rec.Kept,
		rec.Failed,
		rec.Cached,
		rec.Error,
		formatTimestamp(rec.StartedAt),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// ListRuns returns run summaries, newest first.
// An empty source lists runs of every source.
func (s *URLStore) ListRuns(ctx context.Context, source string) ([]RunRecord, error) {
	query := `
	SELECT id, source, root_url, platform, discovered, kept, failed, cached, error, started_at, duration_ms
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0, 1)

	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	query += " ORDER BY started_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			platform   string
			errMessage sql.NullString
			startedAt  string
			durationMS int64
		)

		err := rows.Scan(
			&rec.ID,
			&rec.Source,
			&rec.RootURL,
			&platform,
			&rec.Discovered,
			&rec.Kept,
			&rec.Failed,
			&rec.Cached,
			&errMessage,
			&startedAt,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.Platform = model.Platform(platform)
		rec.Error = errMessage.String
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListSources returns every source that has stored URLs or runs, sorted.
func (s *URLStore) ListSources(ctx context.Context) ([]string, error) {
	query := `
	SELECT source FROM urls
	UNION
	SELECT source FROM runs
	ORDER BY source
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// formatTimestamp formats t so that lexical order matches time order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000000000Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
