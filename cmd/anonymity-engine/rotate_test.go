package main

import (
	"strings"
	"testing"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/config"
)

// TestNewRotateCmd tests the rotate command creation.
func TestNewRotateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRotateCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "rotate" {
			t.Errorf("expected use 'rotate', got %q", cmd.Use)
		}
	})

	t.Run("has rotation flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"socks-port", "control-port", "timeout", "interval", "count",
			"retries", "settle", "service", "embedded-tor", "tor-timeout",
			"config", "log-file", "no-history",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("interval defaults to unset", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("interval")
		if flag.DefValue != "0" {
			t.Errorf("expected interval default '0', got %q", flag.DefValue)
		}
	})
}

// TestBuildRotateConfig tests flag-to-config merging.
func TestBuildRotateConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults without flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewRotateCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildRotateConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SocksPort != config.DefaultSocksPort {
			t.Errorf("expected default SOCKS port, got %d", cfg.SocksPort)
		}
		if cfg.Interval != 0 {
			t.Errorf("expected zero interval before prompting, got %v", cfg.Interval)
		}
		if cfg.ChangeCountSet {
			t.Error("expected change count to be unset")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewRotateCmd()
		if err := cmd.ParseFlags([]string{
			"--socks-port", "9150", "--interval", "60", "--count", "0",
		}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildRotateConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SocksPort != 9150 {
			t.Errorf("expected SOCKS port 9150, got %d", cfg.SocksPort)
		}
		if cfg.Interval != 60*time.Second {
			t.Errorf("expected 60s interval, got %v", cfg.Interval)
		}
		if !cfg.ChangeCountSet || cfg.ChangeCount != 0 {
			t.Error("expected change count 0 to be recorded as set")
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewRotateCmd()
		if err := cmd.ParseFlags([]string{"--config", "/does/not/exist.yaml"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildRotateConfig(cmd); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

// TestPromptInterval tests the interactive interval prompt.
func TestPromptInterval(t *testing.T) {
	t.Parallel()

	t.Run("accepts value within bounds", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		got, err := promptInterval(strings.NewReader("60\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 60*time.Second {
			t.Errorf("expected 60s, got %v", got)
		}
	})

	t.Run("re-prompts until value is within bounds", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		got, err := promptInterval(strings.NewReader("5\n3601\nabc\n120\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 120*time.Second {
			t.Errorf("expected 120s, got %v", got)
		}
		if n := strings.Count(out.String(), "Please enter a number"); n != 3 {
			t.Errorf("expected 3 re-prompts, got %d", n)
		}
	})

	t.Run("accepts the bounds themselves", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		got, err := promptInterval(strings.NewReader("10\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 10*time.Second {
			t.Errorf("expected 10s, got %v", got)
		}

		got, err = promptInterval(strings.NewReader("3600\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 3600*time.Second {
			t.Errorf("expected 3600s, got %v", got)
		}
	})

	t.Run("EOF returns error", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		if _, err := promptInterval(strings.NewReader(""), &out); err == nil {
			t.Error("expected error on EOF")
		}
	})
}

// TestPromptCount tests the interactive change count prompt.
func TestPromptCount(t *testing.T) {
	t.Parallel()

	t.Run("accepts zero as unlimited", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		got, err := promptCount(strings.NewReader("0\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("rejects negative and oversized values", func(t *testing.T) {
		t.Parallel()

		var out strings.Builder
		got, err := promptCount(strings.NewReader("-1\n10000\n25\n"), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 25 {
			t.Errorf("expected 25, got %d", got)
		}
		if n := strings.Count(out.String(), "Please enter a number"); n != 2 {
			t.Errorf("expected 2 re-prompts, got %d", n)
		}
	})
}
