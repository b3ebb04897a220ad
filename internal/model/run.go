package model

import "time"

// SourceRun is the state of one pipeline execution for a source.
// Steps fill it in as they run.
type SourceRun struct {
	// Target is the source being processed.
	Target *CrawlTarget `json:"target"`

	// Crawl is the crawl result. Nil when the URLs came from the cache
	// or the crawl step did not run.
	Crawl *CrawlResult `json:"crawl,omitempty"`

	// URLs is the final URL set handed to downstream consumers.
	URLs []string `json:"urls"`

	// Discovered is the number of URLs the crawl produced before prefiltering.
	Discovered int `json:"discovered"`

	// Cached is true when URLs were loaded from the store instead of crawled.
	Cached bool `json:"cached"`

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// Duration is the total run time.
	Duration time.Duration `json:"duration"`

	// Cancelled is true if the run was interrupted by context cancellation.
	Cancelled bool `json:"cancelled"`

	// Error holds the last step error, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSourceRun creates a run for target.
func NewSourceRun(target *CrawlTarget) *SourceRun {
	return &SourceRun{
		Target:         target,
		URLs:           make([]string, 0),
		PerformedSteps: make([]string, 0),
		StartedAt:      time.Now(),
	}
}

// Name returns the source name.
func (r *SourceRun) Name() string {
	if r.Target == nil {
		return ""
	}
	return r.Target.DisplayName()
}

// Failed reports whether the run ended with an error.
func (r *SourceRun) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// FailedPages returns the number of pages that failed during the crawl.
func (r *SourceRun) FailedPages() int {
	if r.Crawl == nil {
		return 0
	}
	return len(r.Crawl.Failed)
}

// PlatformName returns the detected platform, or PlatformDefault when unknown.
func (r *SourceRun) PlatformName() Platform {
	if r.Crawl == nil {
		return PlatformDefault
	}
	return r.Crawl.Platform
}
