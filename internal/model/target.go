package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Default crawl limits applied when a source leaves a value unset.
const (
	// DefaultMaxDepth is the default number of link hops followed from the root.
	DefaultMaxDepth = 3

	// DefaultPageTimeout is the default timeout for a single fetch attempt.
	DefaultPageTimeout = 10 * time.Second

	// DefaultConcurrency is the default number of fetches in flight per crawl.
	DefaultConcurrency = 10
)

// Target validation errors.
var (
	// ErrEmptyRootURL is returned when a target has no root URL.
	ErrEmptyRootURL = errors.New("root URL is empty")

	// ErrInvalidRootURL is returned when the root URL is not an absolute http(s) URL.
	ErrInvalidRootURL = errors.New("root URL must be an absolute http or https URL")

	// ErrInvalidBaseExcludeURL is returned when the base-exclude URL cannot be parsed.
	ErrInvalidBaseExcludeURL = errors.New("base exclude URL must be an absolute http or https URL")

	// ErrInvalidMaxDepth is returned when the maximum depth is less than one.
	ErrInvalidMaxDepth = errors.New("max depth must be at least 1")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrInvalidPageTimeout is returned when the per-page timeout is not positive.
	ErrInvalidPageTimeout = errors.New("page timeout must be positive")
)

// CrawlTarget describes one source to crawl.
// It is built once per source before the crawl starts and is treated as
// read-only for the duration of the crawl.
type CrawlTarget struct {
	// Name identifies the source (e.g. "brown"). Used for logging and storage keys.
	Name string `json:"name"`

	// RootURL is where the breadth-first traversal starts.
	RootURL string `json:"root_url"`

	// BaseExcludeURL optionally defines the scoping host and path prefix.
	// When empty the scope is derived from RootURL.
	BaseExcludeURL string `json:"base_exclude_url,omitempty"`

	// MaxDepth is the exclusive depth limit: entries at depth >= MaxDepth
	// are never processed. The root is depth 0.
	MaxDepth int `json:"max_depth"`

	// Concurrency bounds the number of fetches in flight.
	Concurrency int `json:"concurrency"`

	// PageTimeout is applied to every individual fetch attempt.
	PageTimeout time.Duration `json:"page_timeout"`

	// ExcludePatterns are regular expressions appended to the built-in
	// exclusion patterns. A URL matching any of them is never followed.
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	// IncludeExternal allows links outside the scope to be followed.
	IncludeExternal bool `json:"include_external"`

	// MaxLinksPerPage caps the candidate links taken from a single page.
	// Zero means unlimited.
	MaxLinksPerPage int `json:"max_links_per_page,omitempty"`

	// Cookie is sent with every static request to this source.
	Cookie string `json:"-"`

	// Headers are sent with every static request to this source.
	Headers map[string]string `json:"-"`
}

// NewCrawlTarget creates a target for rootURL with default limits.
func NewCrawlTarget(name, rootURL string) *CrawlTarget {
	return &CrawlTarget{
		Name:        name,
		RootURL:     rootURL,
		MaxDepth:    DefaultMaxDepth,
		Concurrency: DefaultConcurrency,
		PageTimeout: DefaultPageTimeout,
	}
}

// Validate checks that the target can be crawled.
func (t *CrawlTarget) Validate() error {
	if t.RootURL == "" {
		return ErrEmptyRootURL
	}
	if !isAbsoluteHTTPURL(t.RootURL) {
		return ErrInvalidRootURL
	}
	if t.BaseExcludeURL != "" && !isAbsoluteHTTPURL(t.BaseExcludeURL) {
		return ErrInvalidBaseExcludeURL
	}
	if t.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}
	if t.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if t.PageTimeout <= 0 {
		return ErrInvalidPageTimeout
	}
	return nil
}

// DisplayName returns Name, falling back to RootName of the root URL.
func (t *CrawlTarget) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return RootName(t.RootURL)
}

// RootName names a source after its root URL: the lowercase host followed
// by the path without its trailing slash and the query, if any.
// Roots on one host with different paths get different names.
func RootName(rootURL string) string {
	u, err := url.Parse(rootURL)
	if err != nil || u.Host == "" {
		return rootURL
	}
	name := strings.ToLower(u.Host) + strings.TrimSuffix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		name += "?" + u.RawQuery
	}
	return name
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
