package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/coursecrawl/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs human-readable text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// showURLs lists the final URLs of every source.
	showURLs bool

	// verbose lists failed pages with their reasons.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowURLs lists the final URLs of every source.
func WithShowURLs(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showURLs = show
	}
}

// WithVerbose lists failed pages with their reasons.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the runs in human-readable format.
func (w *SimpleWriter) Write(runs []*model.SourceRun) (int, error) {
	runs = present(runs)

	var sb strings.Builder
	w.writeHeader(&sb, Summarize(runs))
	w.writeSources(&sb, runs)
	if w.verbose {
		w.writeFailures(&sb, runs)
	}
	if w.showURLs {
		w.writeURLs(&sb, runs)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with batch totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        COURSECRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Sources:      %d\n", s.Sources)
	fmt.Fprintf(sb, "Crawled:      %d\n", s.Succeeded)
	fmt.Fprintf(sb, "Cached:       %d\n", s.Cached)
	fmt.Fprintf(sb, "Failed:       %d\n", s.Failed)
	if s.Cancelled > 0 {
		fmt.Fprintf(sb, "Cancelled:    %d\n", s.Cancelled)
	}
	fmt.Fprintf(sb, "URLs:         %d (discovered %d)\n", s.URLs, s.Discovered)
	fmt.Fprintf(sb, "Failed Pages: %d\n", s.FailedPages)
	sb.WriteString("\n")
}

// writeSources writes one line per source.
func (w *SimpleWriter) writeSources(sb *strings.Builder, runs []*model.SourceRun) {
	w.writeSection(sb, "SOURCES")

	if len(runs) == 0 {
		sb.WriteString("  No sources processed\n\n")
		return
	}

	for _, run := range runs {
		status := StatusOf(run)
		fmt.Fprintf(sb, "  [%s] %s (%s)\n", statusIndicator(status), run.Name(), platformLabel(run.PlatformName()))
		fmt.Fprintf(sb, "      urls=%d discovered=%d failed_pages=%d duration=%s\n",
			len(run.URLs), run.Discovered, run.FailedPages(), formatDuration(run.Duration))
		if msg := errorText(run); msg != "" {
			fmt.Fprintf(sb, "      %s: %s\n", strings.ToUpper(string(status)), msg)
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes failed pages per source.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, runs []*model.SourceRun) {
	if Summarize(runs).FailedPages == 0 {
		return
	}

	w.writeSection(sb, "FAILED PAGES")
	for _, run := range runs {
		if run.FailedPages() == 0 {
			continue
		}
		fmt.Fprintf(sb, "%s\n", run.Name())
		for _, f := range run.Crawl.Failed {
			fmt.Fprintf(sb, "  * %s (depth %d)\n", f.URL, f.Depth)
			fmt.Fprintf(sb, "    Reason: %s\n", f.Reason)
		}
	}
	sb.WriteString("\n")
}

// writeURLs writes the final URL list per source.
func (w *SimpleWriter) writeURLs(sb *strings.Builder, runs []*model.SourceRun) {
	w.writeSection(sb, "URLS")
	for _, run := range runs {
		fmt.Fprintf(sb, "%s (%d)\n", run.Name(), len(run.URLs))
		for _, u := range run.URLs {
			fmt.Fprintf(sb, "  %s\n", u)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by coursecrawl\n")
	sb.WriteString("https://github.com/nao1215/coursecrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// statusIndicator returns a short marker for the status.
func statusIndicator(status Status) string {
	switch status {
	case StatusOK:
		return "+"
	case StatusCached:
		return "c"
	case StatusFailed:
		return "x"
	case StatusCancelled:
		return "!"
	default:
		return "?"
	}
}

// platformLabel returns a display label such as "Modern Campus".
func platformLabel(p model.Platform) string {
	return cases.Title(language.English).String(p.Label())
}
