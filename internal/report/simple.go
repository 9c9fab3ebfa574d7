package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a rotation
// session.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-rotation event listing.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-rotation detail.
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

// Write outputs the session summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.SessionSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	if w.verbose {
		w.writeEvents(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the session header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.SessionSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                 ROTATION SESSION SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:   %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", summary.Duration().Round(time.Second)))
	sb.WriteString(fmt.Sprintf("Interval:  %s\n", summary.Interval))
	if summary.Budget > 0 {
		sb.WriteString(fmt.Sprintf("Budget:    %d changes\n", summary.Budget))
	} else {
		sb.WriteString("Budget:    unlimited\n")
	}
	sb.WriteString(fmt.Sprintf("Ended by:  %s\n", causeText(summary.Cause)))
	sb.WriteString("\n")
}

// writeTotals writes the attempt and change counters.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.SessionSummary) {
	sb.WriteString(fmt.Sprintf("Rotations attempted: %d\n", summary.Attempts))
	sb.WriteString(fmt.Sprintf("IP changes:          %d\n", summary.Changes))
	if summary.InitialIP != "" {
		sb.WriteString(fmt.Sprintf("Initial exit IP:     %s\n", summary.InitialIP))
	}
	if summary.FinalIP != "" {
		sb.WriteString(fmt.Sprintf("Final exit IP:       %s\n", summary.FinalIP))
	}
	sb.WriteString("\n")
}

// writeEvents writes the per-rotation listing.
func (w *SimpleWriter) writeEvents(sb *strings.Builder, summary *model.SessionSummary) {
	if len(summary.Events) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	for i, ev := range summary.Events {
		sb.WriteString(fmt.Sprintf("[%d] %s", i+1, ev.Timestamp.Format("15:04:05")))
		if ev.Error != "" {
			sb.WriteString(fmt.Sprintf("  FAILED: %s\n", ev.Error))
			continue
		}
		if ev.Changed {
			sb.WriteString(fmt.Sprintf("  %s -> %s (via %s)\n", ev.OldIP, ev.NewIP, ev.Strategy))
		} else {
			sb.WriteString(fmt.Sprintf("  unchanged at %s (via %s)\n", ev.NewIP, ev.Strategy))
		}
	}
	sb.WriteString("\n")
}

// causeText converts an end cause into display text.
func causeText(cause model.EndCause) string {
	switch cause {
	case model.EndCauseBudget:
		return "change budget exhausted"
	case model.EndCauseSignal:
		return "shutdown signal"
	case model.EndCauseError:
		return "initialization error"
	default:
		return cause.String()
	}
}
