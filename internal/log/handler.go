package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// MaskValue replaces sensitive attribute values in log output.
const MaskValue = "***REDACTED***"

// sensitiveKeywords flags attribute keys whose values must never appear in
// logs. The control-port password is the main concern for a tool that sits
// next to a Tor daemon; the rest cover operator-provided config that may
// leak into debug output.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "cookie",
}

// RedactingHandler wraps an slog.Handler and masks attribute values whose
// keys look sensitive before passing records on.
//
// A handler wrapper integrates with the standard slog API and works with
// any underlying handler (text or JSON), so the same redaction applies to
// both output formats.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler with redaction. A nil handler falls
// back to slog.Default's handler.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks sensitive attributes and forwards the record.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs returns a new handler with redacted attributes added.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a single attribute, recursing into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			clean[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	key := strings.ToLower(a.Key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return slog.String(a.Key, MaskValue)
		}
	}
	return a
}

// multiHandler fans a record out to several handlers. Used to write every
// log line to stdout and to the log file at the same time.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled reports true when any underlying handler is enabled.
func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every enabled handler, returning the first
// error encountered. A failing file sink must not silence stdout, so all
// handlers are attempted regardless.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs applies the attributes to every underlying handler.
func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: hs}
}

// WithGroup applies the group to every underlying handler.
func (m *multiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: hs}
}

// Options configures New.
type Options struct {
	// Verbose selects slog.LevelDebug; the default level is Info.
	Verbose bool

	// JSON emits JSON lines instead of logfmt text.
	JSON bool

	// FilePath, when non-empty, duplicates output into the named file
	// (created with 0600, appended across runs).
	FilePath string
}

// New builds the application logger: redaction wrapped around a text or
// JSON handler writing to w, optionally teed into a log file.
//
// The returned closer flushes and closes the log file; it is a no-op when
// no file is configured. File open failure is returned rather than treated
// as fatal here so the caller can decide (the rotate command degrades to
// stdout-only with a warning).
func New(w io.Writer, opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	build := func(w io.Writer) slog.Handler {
		if opts.JSON {
			return slog.NewJSONHandler(w, hopts)
		}
		return slog.NewTextHandler(w, hopts)
	}

	handlers := []slog.Handler{build(w)}
	closer := func() error { return nil }

	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, build(f))
		closer = f.Close
	}

	var handler slog.Handler = &multiHandler{handlers: handlers}
	if len(handlers) == 1 {
		handler = handlers[0]
	}

	return slog.New(NewRedactingHandler(handler)), closer, nil
}
