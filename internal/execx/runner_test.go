package execx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOSRunner(t *testing.T) {
	t.Parallel()

	r := NewOSRunner()
	ctx := context.Background()

	t.Run("captures output and zero exit", func(t *testing.T) {
		t.Parallel()

		res, err := r.Run(ctx, 5*time.Second, "echo", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Succeeded() {
			t.Errorf("expected success, got exit %d", res.ExitCode)
		}
		if res.Output != "hello" {
			t.Errorf("expected trimmed output hello, got %q", res.Output)
		}
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		t.Parallel()

		res, err := r.Run(ctx, 5*time.Second, "false")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Succeeded() {
			t.Error("expected failure exit code")
		}
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		t.Parallel()

		_, err := r.Run(ctx, 5*time.Second, "definitely-not-a-real-binary-xyz")
		if err == nil {
			t.Error("expected error for missing binary")
		}
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		t.Parallel()

		// The killed process reports "signal: killed" as an ExitError;
		// the deadline, not the exit, must decide the outcome.
		res, err := r.Run(ctx, 100*time.Millisecond, "sleep", "5")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if res.Succeeded() {
			t.Error("a timed-out command must not count as an answer")
		}
	})

	t.Run("LookPath finds common binaries", func(t *testing.T) {
		t.Parallel()

		if _, err := r.LookPath("echo"); err != nil {
			t.Errorf("expected echo on PATH: %v", err)
		}
		if _, err := r.LookPath("definitely-not-a-real-binary-xyz"); err == nil {
			t.Error("expected lookup failure")
		}
	})
}

func TestFakeRunner(t *testing.T) {
	t.Parallel()

	f := NewFakeRunner()
	f.Script("systemctl is-active tor", 0, "active")

	res, err := f.Run(context.Background(), 0, "systemctl", "is-active", "tor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "active" || !res.Succeeded() {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := f.Run(context.Background(), 0, "systemctl", "reload", "tor"); !errors.Is(err, ErrNotScripted) {
		t.Errorf("expected ErrNotScripted, got %v", err)
	}

	if got := f.CallCount("systemctl is-active tor"); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}
