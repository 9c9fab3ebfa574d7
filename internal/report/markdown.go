package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/zioerenkl/AnonymityEngine/internal/model"
)

// MarkdownWriter outputs session summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the session summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.SessionSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeEvents(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the session overview table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.SessionSummary) {
	md.H1("Rotation Session Summary")
	md.PlainText("")

	budget := "unlimited"
	if summary.Budget > 0 {
		budget = strconv.Itoa(summary.Budget) + " changes"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().Round(time.Second).String()},
			{"Interval", summary.Interval.String()},
			{"Budget", budget},
			{"Ended by", causeText(summary.Cause)},
		},
	})
	md.PlainText("")
}

// writeTotals writes the attempt and change counters.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.SessionSummary) {
	md.H2("Totals")
	md.PlainText("")

	rows := [][]string{
		{"Rotations attempted", strconv.Itoa(summary.Attempts)},
		{"IP changes", strconv.Itoa(summary.Changes)},
	}
	if summary.InitialIP != "" {
		rows = append(rows, []string{"Initial exit IP", "`" + summary.InitialIP + "`"})
	}
	if summary.FinalIP != "" {
		rows = append(rows, []string{"Final exit IP", "`" + summary.FinalIP + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeEvents writes the per-rotation table.
func (w *MarkdownWriter) writeEvents(md *markdown.Markdown, summary *model.SessionSummary) {
	if len(summary.Events) == 0 {
		return
	}

	md.H2("Rotations")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Events))
	for _, ev := range summary.Events {
		result := "unchanged"
		if ev.Changed {
			result = "changed"
		}
		if ev.Error != "" {
			result = "failed: " + ev.Error
		}
		rows = append(rows, []string{
			ev.Timestamp.Format("15:04:05"),
			ev.Strategy,
			ev.OldIP,
			ev.NewIP,
			result,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Time", "Strategy", "Old IP", "New IP", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}
