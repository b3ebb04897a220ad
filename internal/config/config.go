package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Default configuration values.
const (
	// DefaultCrawlDepth is the number of link levels explored below the root.
	// Catalog course listings usually sit two or three clicks from the landing page.
	DefaultCrawlDepth = model.DefaultMaxDepth

	// DefaultPageTimeout bounds one static fetch attempt.
	DefaultPageTimeout = model.DefaultPageTimeout

	// DefaultRenderTimeout bounds one browser render including scroll simulation.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultConcurrency is the number of pages fetched at once per source.
	DefaultConcurrency = model.DefaultConcurrency

	// DefaultBatchSize is the number of sources crawled at once.
	// Each source owns its own fetch token pool, so the number of open
	// connections is roughly BatchSize * Concurrency.
	DefaultBatchSize = 2

	// DefaultScrollSteps is the number of viewport scrolls per rendered page.
	DefaultScrollSteps = 30

	// DefaultPrefilterConcurrency is the number of reachability checks run at once.
	DefaultPrefilterConcurrency = 20

	// DefaultPrefilterTimeout bounds one reachability check.
	DefaultPrefilterTimeout = 2 * time.Second

	// DefaultMaxBodySize limits how much of a static response is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "coursecrawl"
)

// Config holds all options of one coursecrawl invocation.
// It is populated from CLI flags and the sources file and passed down
// explicitly; nothing reads it from global state.
type Config struct {
	// Roots are ad-hoc catalog root URLs given on the command line.
	Roots []string

	// SourceNames restricts the sources file to these names.
	// Empty means every source in the file.
	SourceNames []string

	// ConfigFilePath is the sources file path. Empty searches the default locations.
	ConfigFilePath string

	// Sources holds the loaded sources file, if any.
	Sources *File

	// CrawlDepth is the maximum depth for ad-hoc roots.
	CrawlDepth int

	// PageTimeout bounds one static fetch attempt for ad-hoc roots.
	PageTimeout time.Duration

	// RenderTimeout bounds one browser render.
	RenderTimeout time.Duration

	// Concurrency is the number of pages fetched at once for ad-hoc roots.
	Concurrency int

	// ExcludePatterns are extra exclusion regexes for ad-hoc roots.
	ExcludePatterns []string

	// BaseExcludeURL sets the crawl scope for ad-hoc roots.
	BaseExcludeURL string

	// IncludeExternal follows links to other hosts for ad-hoc roots.
	IncludeExternal bool

	// MaxLinksPerPage caps links followed from one page for ad-hoc roots. 0 is unlimited.
	MaxLinksPerPage int

	// BatchSize is the number of sources crawled at once.
	BatchSize int

	// NoRender disables escalation to browser rendering.
	NoRender bool

	// BrowserBin is the Chromium executable. Empty lets the renderer locate one.
	BrowserBin string

	// ScrollSteps is the number of viewport scrolls per rendered page.
	ScrollSteps int

	// NoSandbox disables the Chromium sandbox, needed when running as root in containers.
	NoSandbox bool

	// ProxyAddress routes static fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UserAgent overrides the browser-like User-Agent of static fetches.
	UserAgent string

	// MaxBodySize limits how much of a static response is read.
	MaxBodySize int64

	// NoPrefilter skips the reachability re-check of discovered URLs.
	NoPrefilter bool

	// PrefilterConcurrency is the number of reachability checks run at once.
	PrefilterConcurrency int

	// PrefilterTimeout bounds one reachability check.
	PrefilterTimeout time.Duration

	// Refresh ignores URLs cached in the database and crawls again.
	Refresh bool

	// DBDir is the directory of the SQLite database.
	// Empty disables persistence.
	DBDir string

	// SaveToDB is set when DBDir is configured.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport selects the JSON report format.
	JSONReport bool

	// MarkdownReport selects the Markdown report format.
	MarkdownReport bool

	// ShowURLs lists every discovered URL in text and Markdown reports.
	ShowURLs bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		CrawlDepth:           DefaultCrawlDepth,
		PageTimeout:          DefaultPageTimeout,
		RenderTimeout:        DefaultRenderTimeout,
		Concurrency:          DefaultConcurrency,
		BatchSize:            DefaultBatchSize,
		ScrollSteps:          DefaultScrollSteps,
		MaxBodySize:          DefaultMaxBodySize,
		PrefilterConcurrency: DefaultPrefilterConcurrency,
		PrefilterTimeout:     DefaultPrefilterTimeout,
	}
}

// XDGDataDir returns the XDG data directory for coursecrawl.
// On Linux: ~/.local/share/coursecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for coursecrawl.
// On Linux: ~/.config/coursecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 && (c.Sources == nil || len(c.Sources.Sources) == 0) {
		return ErrNoTarget
	}

	if c.PageTimeout <= 0 || c.RenderTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDepth < 1 {
		return ErrInvalidCrawlDepth
	}

	if c.Concurrency <= 0 || c.PrefilterConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ScrollSteps < 0 {
		return ErrInvalidScrollSteps
	}

	if c.MaxLinksPerPage < 0 {
		return ErrInvalidMaxLinksPerPage
	}

	if c.PrefilterTimeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}

// Targets returns the crawl targets of this invocation: ad-hoc roots first,
// then the selected sources of the sources file in file order.
func (c *Config) Targets() ([]*model.CrawlTarget, error) {
	targets := make([]*model.CrawlTarget, 0, len(c.Roots))

	adhoc := SourceConfig{
		CrawlDepth:      c.CrawlDepth,
		PageTimeoutS:    int(c.PageTimeout / time.Second),
		MaxConcurrency:  c.Concurrency,
		BaseExcludeURL:  c.BaseExcludeURL,
		ExcludePatterns: c.ExcludePatterns,
		IncludeExternal: c.IncludeExternal,
		MaxLinksPerPage: c.MaxLinksPerPage,
	}
	for _, root := range c.Roots {
		sc := adhoc
		sc.Name = model.RootName(root)
		sc.RootURL = root
		target := sc.Target()
		// Sub-second timeouts are lost in PageTimeoutS.
		target.PageTimeout = c.PageTimeout
		targets = append(targets, target)
	}

	if c.Sources == nil {
		if len(c.SourceNames) > 0 {
			return nil, ErrNoSourcesFile
		}
		return targets, nil
	}

	selected, err := c.Sources.Select(c.SourceNames)
	if err != nil {
		return nil, err
	}
	for _, sc := range selected {
		targets = append(targets, sc.Target())
	}

	return targets, nil
}
