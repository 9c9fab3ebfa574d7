package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactingHandler(t *testing.T) {
	t.Parallel()

	t.Run("masks sensitive keys", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))

		logger.Info("connecting",
			"control_password", "hunter2",
			"socks_port", 9050,
		)

		out := buf.String()
		if strings.Contains(out, "hunter2") {
			t.Error("password value leaked into log output")
		}
		if !strings.Contains(out, MaskValue) {
			t.Error("expected mask value in output")
		}
		if !strings.Contains(out, "9050") {
			t.Error("non-sensitive value must pass through")
		}
	})

	t.Run("masks keys inside groups", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))

		logger.Info("request",
			slog.Group("http", slog.String("cookie", "session=abc"), slog.String("url", "http://icanhazip.com")),
		)

		out := buf.String()
		if strings.Contains(out, "session=abc") {
			t.Error("cookie leaked through group attribute")
		}
		if !strings.Contains(out, "icanhazip.com") {
			t.Error("expected url to survive redaction")
		}
	})

	t.Run("masks attrs added via With", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))

		logger.With("api_token", "abc123").Info("hello")

		if strings.Contains(buf.String(), "abc123") {
			t.Error("token added via With leaked into output")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("writes to both stdout writer and file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "engine.log")
		var buf bytes.Buffer

		logger, closer, err := New(&buf, Options{FilePath: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		logger.Info("rotation complete", "new_ip", "1.2.3.4")
		if err := closer(); err != nil {
			t.Fatalf("closer failed: %v", err)
		}

		if !strings.Contains(buf.String(), "rotation complete") {
			t.Error("expected message on primary writer")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "rotation complete") {
			t.Error("expected message in log file")
		}
	})

	t.Run("debug suppressed unless verbose", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, _, err := New(&buf, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		logger.Debug("invisible")
		if buf.Len() != 0 {
			t.Errorf("expected no output at debug level, got %q", buf.String())
		}

		logger, _, err = New(&buf, Options{Verbose: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Debug("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Error("expected debug output in verbose mode")
		}
	})

	t.Run("json option emits json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, _, err := New(&buf, Options{JSON: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		logger.Info("hello")
		if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
			t.Errorf("expected JSON output, got %q", buf.String())
		}
	})

	t.Run("unwritable file path returns error", func(t *testing.T) {
		t.Parallel()

		_, _, err := New(&bytes.Buffer{}, Options{FilePath: filepath.Join(t.TempDir(), "no", "such", "dir", "x.log")})
		if err == nil {
			t.Error("expected error for unwritable log file path")
		}
	})
}
