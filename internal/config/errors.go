package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no root URL and no source is configured.
	ErrNoTarget = errors.New("no target specified: provide a root URL or a sources file")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDepth is returned when the crawl depth is less than one.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be at least 1")

	// ErrInvalidConcurrency is returned when a concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidScrollSteps is returned when the scroll step count is negative.
	ErrInvalidScrollSteps = errors.New("invalid scroll steps: must be non-negative")

	// ErrInvalidMaxLinksPerPage is returned when the per-page link cap is negative.
	ErrInvalidMaxLinksPerPage = errors.New("invalid max links per page: must be non-negative")
)

// Sources file errors.
var (
	// ErrConfigNotFound is returned when the sources file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoSourcesFile is returned when sources are selected by name but no sources file was loaded.
	ErrNoSourcesFile = errors.New("sources selected by name but no sources file was found")

	// ErrUnknownSource is returned when a selected source name is not in the sources file.
	ErrUnknownSource = errors.New("unknown source")

	// ErrSourceMissingName is returned when a source entry has no name.
	ErrSourceMissingName = errors.New("source entry has no name")

	// ErrSourceMissingRoot is returned when a source entry has no root_url.
	ErrSourceMissingRoot = errors.New("source entry has no root_url")

	// ErrDuplicateSource is returned when two source entries share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
)
