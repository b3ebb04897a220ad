package report

import (
	"io"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs a report of runs to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(runs []*model.SourceRun) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(runs []*model.SourceRun) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Status is the outcome of one source run.
type Status string

// Run outcomes.
const (
	StatusOK        Status = "ok"
	StatusCached    Status = "cached"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StatusOf returns the outcome of run.
func StatusOf(run *model.SourceRun) Status {
	switch {
	case run.Cancelled:
		return StatusCancelled
	case run.Failed():
		return StatusFailed
	case run.Cached:
		return StatusCached
	default:
		return StatusOK
	}
}

// Summary aggregates a batch of runs.
type Summary struct {
	// Sources is the number of runs reported.
	Sources int `json:"sources"`

	// Succeeded counts runs that crawled without error.
	Succeeded int `json:"succeeded"`

	// Cached counts runs served from the URL store.
	Cached int `json:"cached"`

	// Failed counts runs that ended with an error.
	Failed int `json:"failed"`

	// Cancelled counts interrupted runs.
	Cancelled int `json:"cancelled"`

	// URLs is the total number of final URLs.
	URLs int `json:"urls"`

	// Discovered is the total number of URLs found before prefiltering.
	Discovered int `json:"discovered"`

	// FailedPages is the total number of pages that could not be fetched.
	FailedPages int `json:"failed_pages"`
}

// Summarize aggregates runs, skipping nil entries.
func Summarize(runs []*model.SourceRun) Summary {
	var s Summary
	for _, run := range present(runs) {
		s.Sources++
		s.URLs += len(run.URLs)
		s.Discovered += run.Discovered
		s.FailedPages += run.FailedPages()

		switch StatusOf(run) {
		case StatusOK:
			s.Succeeded++
		case StatusCached:
			s.Cached++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// present drops nil runs.
func present(runs []*model.SourceRun) []*model.SourceRun {
	out := make([]*model.SourceRun, 0, len(runs))
	for _, run := range runs {
		if run != nil {
			out = append(out, run)
		}
	}
	return out
}

// errorText returns the error message of run.
func errorText(run *model.SourceRun) string {
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	if run.Error != nil {
		return run.Error.Error()
	}
	return ""
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
