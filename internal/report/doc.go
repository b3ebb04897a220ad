// Package report writes the outcome of a batch of source runs.
//
// Three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: GitHub-flavored Markdown with tables and alerts
//   - JSONWriter / FullJSONWriter: JSON for other tools
//
// All writers implement Writer and accept the runs returned by
// pipeline.BatchProcessor. Nil runs (sources that never started because
// the batch was cancelled) are skipped.
package report
