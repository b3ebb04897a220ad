package config

import (
	"fmt"
	"maps"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// SourceConfig describes one catalog to crawl.
// Zero values fall back to the file defaults and then to the built-in defaults.
type SourceConfig struct {
	// Name identifies the source in the database and in reports.
	Name string `yaml:"name,omitempty"`

	// RootURL is the page the crawl starts from.
	RootURL string `yaml:"root_url,omitempty"`

	// BaseExcludeURL sets the scope boundary. Empty scopes the crawl to the
	// directory of RootURL.
	BaseExcludeURL string `yaml:"base_exclude_url,omitempty"`

	// CrawlDepth is the maximum crawl depth.
	CrawlDepth int `yaml:"crawl_depth,omitempty"`

	// PageTimeoutS is the per-request timeout in seconds.
	PageTimeoutS int `yaml:"page_timeout_s,omitempty"`

	// MaxConcurrency is the number of pages fetched at once.
	MaxConcurrency int `yaml:"max_concurrency,omitempty"`

	// ExcludePatterns are regular expressions of URLs never to crawl.
	// Patterns from the defaults section are kept and these are appended.
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`

	// IncludeExternal follows links to other hosts.
	IncludeExternal bool `yaml:"include_external,omitempty"`

	// MaxLinksPerPage caps the links followed from one page. 0 is unlimited.
	MaxLinksPerPage int `yaml:"max_links_per_page,omitempty"`

	// Cookie is an HTTP cookie sent with static requests.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with static requests.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Target converts the source into a crawl target, applying built-in
// defaults to unset fields.
func (sc SourceConfig) Target() *model.CrawlTarget {
	target := model.NewCrawlTarget(sc.Name, sc.RootURL)
	target.BaseExcludeURL = sc.BaseExcludeURL
	target.IncludeExternal = sc.IncludeExternal
	target.MaxLinksPerPage = sc.MaxLinksPerPage
	target.Cookie = sc.Cookie

	if sc.CrawlDepth > 0 {
		target.MaxDepth = sc.CrawlDepth
	}
	if sc.PageTimeoutS > 0 {
		target.PageTimeout = time.Duration(sc.PageTimeoutS) * time.Second
	}
	if sc.MaxConcurrency > 0 {
		target.Concurrency = sc.MaxConcurrency
	}
	if len(sc.ExcludePatterns) > 0 {
		target.ExcludePatterns = append([]string(nil), sc.ExcludePatterns...)
	}
	if len(sc.Headers) > 0 {
		target.Headers = maps.Clone(sc.Headers)
	}

	return target
}

// File represents the structure of the sources file.
type File struct {
	// Defaults apply to every source unless the source overrides them.
	Defaults SourceConfig `yaml:"defaults,omitempty"`

	// Sources are the catalogs to crawl, in file order.
	Sources []SourceConfig `yaml:"sources,omitempty"`
}

// Validate checks that every source has a unique name and a root URL.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Sources))
	for i, sc := range f.Sources {
		if sc.Name == "" {
			return fmt.Errorf("%w (entry %d)", ErrSourceMissingName, i+1)
		}
		if sc.RootURL == "" {
			return fmt.Errorf("%w: %s", ErrSourceMissingRoot, sc.Name)
		}
		if seen[sc.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

// Resolve merges sc over the file defaults.
func (f *File) Resolve(sc SourceConfig) SourceConfig {
	result := f.Defaults
	result.Name = sc.Name
	result.RootURL = sc.RootURL
	result.Headers = maps.Clone(f.Defaults.Headers)
	result.ExcludePatterns = append([]string(nil), f.Defaults.ExcludePatterns...)

	if sc.BaseExcludeURL != "" {
		result.BaseExcludeURL = sc.BaseExcludeURL
	}
	if sc.CrawlDepth != 0 {
		result.CrawlDepth = sc.CrawlDepth
	}
	if sc.PageTimeoutS != 0 {
		result.PageTimeoutS = sc.PageTimeoutS
	}
	if sc.MaxConcurrency != 0 {
		result.MaxConcurrency = sc.MaxConcurrency
	}
	if sc.MaxLinksPerPage != 0 {
		result.MaxLinksPerPage = sc.MaxLinksPerPage
	}
	if sc.IncludeExternal {
		result.IncludeExternal = true
	}
	if sc.Cookie != "" {
		result.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(sc.Headers))
		}
		maps.Copy(result.Headers, sc.Headers)
	}
	result.ExcludePatterns = append(result.ExcludePatterns, sc.ExcludePatterns...)

	return result
}

// Source returns the resolved configuration of the named source.
func (f *File) Source(name string) (SourceConfig, bool) {
	for _, sc := range f.Sources {
		if sc.Name == name {
			return f.Resolve(sc), true
		}
	}
	return SourceConfig{}, false
}

// Select returns the resolved sources with the given names, or every
// source when names is empty.
func (f *File) Select(names []string) ([]SourceConfig, error) {
	if len(names) == 0 {
		selected := make([]SourceConfig, 0, len(f.Sources))
		for _, sc := range f.Sources {
			selected = append(selected, f.Resolve(sc))
		}
		return selected, nil
	}

	selected := make([]SourceConfig, 0, len(names))
	for _, name := range names {
		sc, ok := f.Source(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}
