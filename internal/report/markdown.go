package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/coursecrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter

	// showURLs adds a collapsible URL list per source.
	showURLs bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownURLs adds a collapsible URL list per source.
func WithMarkdownURLs(show bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.showURLs = show
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the runs in Markdown format.
func (w *MarkdownWriter) Write(runs []*model.SourceRun) (int, error) {
	runs = present(runs)
	summary := Summarize(runs)

	md := markdown.NewMarkdown(w.output)

	w.writeSummary(md, summary)
	w.writeSources(md, runs)
	w.writeFailures(md, runs)
	if w.showURLs {
		w.writeURLs(md, runs)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the batch totals, outcome chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H1("Coursecrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Sources", strconv.Itoa(s.Sources)},
			{"Crawled", strconv.Itoa(s.Succeeded)},
			{"Cached", strconv.Itoa(s.Cached)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Cancelled", strconv.Itoa(s.Cancelled)},
			{"URLs", strconv.Itoa(s.URLs)},
			{"Discovered", strconv.Itoa(s.Discovered)},
			{"Failed Pages", strconv.Itoa(s.FailedPages)},
		},
	})
	md.PlainText("")

	if s.Sources > 1 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of run outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Source Outcomes"),
		piechart.WithShowData(true),
	)

	if s.Succeeded > 0 {
		chart.LabelAndIntValue("Crawled", uint64(s.Succeeded))
	}
	if s.Cached > 0 {
		chart.LabelAndIntValue("Cached", uint64(s.Cached))
	}
	if s.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(s.Failed))
	}
	if s.Cancelled > 0 {
		chart.LabelAndIntValue("Cancelled", uint64(s.Cancelled))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the batch outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s Summary) {
	switch {
	case s.Sources == 0:
		md.Note("No sources were processed.")
	case s.Failed == s.Sources:
		md.Cautionf("Every source failed (%d of %d).", s.Failed, s.Sources)
	case s.Failed > 0:
		md.Warningf("%d of %d source(s) failed. Their stored URLs were left untouched.", s.Failed, s.Sources)
	case s.Cancelled > 0:
		md.Importantf("The run was interrupted. %d source(s) have partial results.", s.Cancelled)
	case s.FailedPages > 0:
		md.Notef("All sources completed. %d page(s) could not be fetched.", s.FailedPages)
	default:
		md.Tip("All sources completed without errors.")
	}
	md.PlainText("")
}

// writeSources writes one table row per source.
func (w *MarkdownWriter) writeSources(md *markdown.Markdown, runs []*model.SourceRun) {
	md.H2("Sources")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No sources processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.Name(),
			platformLabel(run.PlatformName()),
			statusText(run),
			strconv.Itoa(len(run.URLs)),
			strconv.Itoa(run.Discovered),
			strconv.Itoa(run.FailedPages()),
			formatDuration(run.Duration),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source", "Platform", "Status", "URLs", "Discovered", "Failed Pages", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes a table of failed pages per source.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, runs []*model.SourceRun) {
	if Summarize(runs).FailedPages == 0 {
		return
	}

	md.H2("Failed Pages")
	md.PlainText("")

	for _, run := range runs {
		if run.FailedPages() == 0 {
			continue
		}

		md.H3(run.Name())
		md.PlainText("")

		rows := make([][]string, len(run.Crawl.Failed))
		for i, f := range run.Crawl.Failed {
			rows[i] = []string{
				truncateString(f.URL, 80),
				strconv.Itoa(f.Depth),
				truncateString(f.Reason, 60),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Depth", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeURLs writes a collapsible URL list per source.
func (w *MarkdownWriter) writeURLs(md *markdown.Markdown, runs []*model.SourceRun) {
	md.H2("URLs")
	md.PlainText("")

	for _, run := range runs {
		if len(run.URLs) == 0 {
			continue
		}
		md.Details(run.Name()+" ("+strconv.Itoa(len(run.URLs))+")", strings.Join(run.URLs, "\n"))
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [coursecrawl](https://github.com/nao1215/coursecrawl)*")
}

// statusText returns the status cell for run.
func statusText(run *model.SourceRun) string {
	switch StatusOf(run) {
	case StatusCancelled:
		return "⚠️ Cancelled (partial results)"
	case StatusFailed:
		return "❌ Error - " + truncateString(errorText(run), 60)
	case StatusCached:
		return "💾 Cached"
	default:
		return "✅ Complete"
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
