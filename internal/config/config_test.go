package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.SocksPort != DefaultSocksPort {
		t.Errorf("expected socks port %d, got %d", DefaultSocksPort, cfg.SocksPort)
	}
	if cfg.ControlPort != DefaultControlPort {
		t.Errorf("expected control port %d, got %d", DefaultControlPort, cfg.ControlPort)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.RetryAttempts != DefaultRetryAttempts {
		t.Errorf("expected %d retry attempts, got %d", DefaultRetryAttempts, cfg.RetryAttempts)
	}
	if cfg.ServiceName != DefaultServiceName {
		t.Errorf("expected service name %q, got %q", DefaultServiceName, cfg.ServiceName)
	}
	if len(cfg.Endpoints) != len(DefaultEndpoints) {
		t.Errorf("expected %d endpoints, got %d", len(DefaultEndpoints), len(cfg.Endpoints))
	}

	// The endpoint slice must be a copy, not an alias of the package default.
	cfg.Endpoints[0] = "http://example.com"
	if DefaultEndpoints[0] == "http://example.com" {
		t.Error("NewConfig must copy DefaultEndpoints, not alias it")
	}
}

func TestConfigSocksAddress(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.SocksAddress(); got != "127.0.0.1:9050" {
		t.Errorf("expected 127.0.0.1:9050, got %s", got)
	}

	cfg.SocksPort = 9150
	if got := cfg.SocksAddress(); got != "127.0.0.1:9150" {
		t.Errorf("expected 127.0.0.1:9150, got %s", got)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "socks port zero",
			mutate:  func(c *Config) { c.SocksPort = 0 },
			wantErr: ErrInvalidSocksPort,
		},
		{
			name:    "socks port too large",
			mutate:  func(c *Config) { c.SocksPort = 70000 },
			wantErr: ErrInvalidSocksPort,
		},
		{
			name:    "control port zero",
			mutate:  func(c *Config) { c.ControlPort = 0 },
			wantErr: ErrInvalidControlPort,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.RetryAttempts = 0 },
			wantErr: ErrInvalidRetryAttempts,
		},
		{
			name:    "empty endpoints",
			mutate:  func(c *Config) { c.Endpoints = nil },
			wantErr: ErrNoEndpoints,
		},
		{
			name:    "interval below minimum",
			mutate:  func(c *Config) { c.Interval = 5 * time.Second },
			wantErr: ErrIntervalOutOfRange,
		},
		{
			name:    "interval above maximum",
			mutate:  func(c *Config) { c.Interval = 3601 * time.Second },
			wantErr: ErrIntervalOutOfRange,
		},
		{
			name:    "interval at lower bound",
			mutate:  func(c *Config) { c.Interval = 10 * time.Second },
			wantErr: nil,
		},
		{
			name:    "interval at upper bound",
			mutate:  func(c *Config) { c.Interval = 3600 * time.Second },
			wantErr: nil,
		},
		{
			name:    "unset interval is allowed",
			mutate:  func(c *Config) { c.Interval = 0 },
			wantErr: nil,
		},
		{
			name:    "negative change count",
			mutate:  func(c *Config) { c.ChangeCount = -1 },
			wantErr: ErrCountOutOfRange,
		},
		{
			name:    "change count above maximum",
			mutate:  func(c *Config) { c.ChangeCount = 10000 },
			wantErr: ErrCountOutOfRange,
		},
		{
			name:    "zero change count means unbounded",
			mutate:  func(c *Config) { c.ChangeCount = 0 },
			wantErr: nil,
		},
		{
			name:    "empty service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: ErrNoServiceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		err := LoadFile(cfg, filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("file values overlay defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
socksPort: 9150
timeoutSeconds: 45
retryAttempts: 5
serviceName: tor@default
endpoints:
  - http://checkip.example.com
intervalSeconds: 60
changeCount: 0
noHistory: true
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := NewConfig()
		if err := LoadFile(cfg, path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SocksPort != 9150 {
			t.Errorf("expected socks port 9150, got %d", cfg.SocksPort)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("expected 45s timeout, got %v", cfg.Timeout)
		}
		if cfg.RetryAttempts != 5 {
			t.Errorf("expected 5 retries, got %d", cfg.RetryAttempts)
		}
		if cfg.ServiceName != "tor@default" {
			t.Errorf("expected tor@default, got %s", cfg.ServiceName)
		}
		if len(cfg.Endpoints) != 1 || cfg.Endpoints[0] != "http://checkip.example.com" {
			t.Errorf("expected single custom endpoint, got %v", cfg.Endpoints)
		}
		if cfg.Interval != 60*time.Second {
			t.Errorf("expected 60s interval, got %v", cfg.Interval)
		}
		if !cfg.ChangeCountSet {
			t.Error("expected ChangeCountSet to be true when the file names a count")
		}
		if !cfg.NoHistory {
			t.Error("expected NoHistory to be true")
		}
		// Untouched fields keep their defaults.
		if cfg.ControlPort != DefaultControlPort {
			t.Errorf("expected default control port, got %d", cfg.ControlPort)
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("socksPort: [broken"), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := NewConfig()
		if err := LoadFile(cfg, path); err == nil {
			t.Error("expected parse error, got nil")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "c.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("explicit missing path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %s", got)
		}
	})
}

func TestLogFilePath(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if got := cfg.LogFilePath(); got != filepath.Join(os.TempDir(), DefaultLogFileName) {
		t.Errorf("unexpected default log path: %s", got)
	}

	cfg.LogFile = "/var/log/rotate.log"
	if got := cfg.LogFilePath(); got != "/var/log/rotate.log" {
		t.Errorf("expected explicit log path, got %s", got)
	}
}
