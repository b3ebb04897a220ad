package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/coursecrawl/internal/model"
)

// JSONWriter outputs the runs as a JSON array.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the runs in JSON format.
func (w *JSONWriter) Write(runs []*model.SourceRun) (int, error) {
	return w.writeJSON(present(runs))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps the runs with metadata and batch totals.
type JSONReport struct {
	// Version is the coursecrawl version that generated this report.
	Version string `json:"version"`

	// GeneratedAt is when the report was written.
	GeneratedAt time.Time `json:"generated_at"`

	// Summary holds the batch totals.
	Summary Summary `json:"summary"`

	// Runs are the source runs in input order.
	Runs []*model.SourceRun `json:"runs"`
}

// NewJSONReport creates a JSONReport for runs.
func NewJSONReport(runs []*model.SourceRun, version string) *JSONReport {
	runs = present(runs)
	return &JSONReport{
		Version:     version,
		GeneratedAt: time.Now(),
		Summary:     Summarize(runs),
		Runs:        runs,
	}
}

// FullJSONWriter outputs runs wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	// version is the coursecrawl version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the runs wrapped with metadata.
func (w *FullJSONWriter) Write(runs []*model.SourceRun) (int, error) {
	return w.writeJSON(NewJSONReport(runs, w.version))
}
