package model

import (
	"sort"
	"time"
)

// FailedURL records a page that could not be fetched.
type FailedURL struct {
	// URL is the page that failed.
	URL string `json:"url"`

	// Depth is the frontier depth of the page.
	Depth int `json:"depth"`

	// Reason is the error message returned by the fetch layer.
	Reason string `json:"reason"`
}

// CrawlResult is the outcome of one crawl.
type CrawlResult struct {
	// Source is the target name.
	Source string `json:"source"`

	// RootURL is the URL the crawl started from.
	RootURL string `json:"root_url"`

	// Platform is the platform detected on the root page.
	Platform Platform `json:"platform"`

	// URLs is the sorted set of pages discovered: every page that was
	// fetched successfully plus any captured leaf pages.
	URLs []string `json:"urls"`

	// Failed lists pages whose fetch failed. They are never part of URLs.
	Failed []FailedURL `json:"failed,omitempty"`

	// PagesFetched counts successful fetches.
	PagesFetched int `json:"pages_fetched"`

	// Challenged counts pages returned while still behind an anti-bot
	// interstitial (best-effort content).
	Challenged int `json:"challenged"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the crawl took.
	Duration time.Duration `json:"duration"`
}

// NewCrawlResult creates an empty result for target.
func NewCrawlResult(target *CrawlTarget) *CrawlResult {
	return &CrawlResult{
		Source:    target.DisplayName(),
		RootURL:   target.RootURL,
		Platform:  PlatformDefault,
		URLs:      make([]string, 0),
		Failed:    make([]FailedURL, 0),
		StartedAt: time.Now(),
	}
}

// SetURLs stores urls sorted and deduplicated.
func (r *CrawlResult) SetURLs(urls []string) {
	r.URLs = SortedUnique(urls)
}

// SortedUnique returns a sorted copy of urls without duplicates or empty strings.
func SortedUnique(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
