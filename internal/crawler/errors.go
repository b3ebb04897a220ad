package crawler

import "errors"

var (
	// ErrNilTarget is returned when Crawl is called without a target.
	ErrNilTarget = errors.New("crawl target is nil")

	// ErrInvalidTarget wraps target validation failures.
	ErrInvalidTarget = errors.New("invalid crawl target")

	// ErrInvalidExcludePattern is returned when an exclusion pattern is not a valid regular expression.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")

	// ErrInvalidBaseURL is returned when a parser is given an unusable page URL.
	ErrInvalidBaseURL = errors.New("invalid base URL")
)
