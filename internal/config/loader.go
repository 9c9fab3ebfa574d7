package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFileName is the configuration file looked up in the XDG
// config directory when no explicit --config path is given.
const DefaultConfigFileName = "config.yaml"

// fileConfig mirrors the YAML configuration file. All fields are optional;
// absent fields keep their current (default) values. Durations are expressed
// in seconds because that is how the operator thinks about them.
type fileConfig struct {
	SocksPort      *int     `yaml:"socksPort,omitempty"`
	ControlPort    *int     `yaml:"controlPort,omitempty"`
	TimeoutSeconds *int     `yaml:"timeoutSeconds,omitempty"`
	RetryAttempts  *int     `yaml:"retryAttempts,omitempty"`
	ServiceName    *string  `yaml:"serviceName,omitempty"`
	TorBinary      *string  `yaml:"torBinary,omitempty"`
	Endpoints      []string `yaml:"endpoints,omitempty"`
	IntervalSecs   *int     `yaml:"intervalSeconds,omitempty"`
	ChangeCount    *int     `yaml:"changeCount,omitempty"`
	LogFile        *string  `yaml:"logFile,omitempty"`
	HistoryDir     *string  `yaml:"historyDir,omitempty"`
	NoHistory      *bool    `yaml:"noHistory,omitempty"`
}

// LoadFile overlays the YAML configuration file at path onto cfg.
// If the file does not exist it returns ErrConfigNotFound; callers treat
// that as fatal only when the operator named the file explicitly.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Operator-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	apply(cfg, &fc)
	return nil
}

// apply copies non-nil file values onto the config. Flags are applied after
// this, so the precedence is defaults < file < flags.
func apply(cfg *Config, fc *fileConfig) {
	if fc.SocksPort != nil {
		cfg.SocksPort = *fc.SocksPort
	}
	if fc.ControlPort != nil {
		cfg.ControlPort = *fc.ControlPort
	}
	if fc.TimeoutSeconds != nil {
		cfg.Timeout = time.Duration(*fc.TimeoutSeconds) * time.Second
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
	if fc.ServiceName != nil {
		cfg.ServiceName = *fc.ServiceName
	}
	if fc.TorBinary != nil {
		cfg.TorBinary = *fc.TorBinary
	}
	if len(fc.Endpoints) > 0 {
		cfg.Endpoints = append([]string(nil), fc.Endpoints...)
	}
	if fc.IntervalSecs != nil {
		cfg.Interval = time.Duration(*fc.IntervalSecs) * time.Second
	}
	if fc.ChangeCount != nil {
		cfg.ChangeCount = *fc.ChangeCount
		cfg.ChangeCountSet = true
	}
	if fc.LogFile != nil {
		cfg.LogFile = *fc.LogFile
	}
	if fc.HistoryDir != nil {
		cfg.HistoryDir = *fc.HistoryDir
	}
	if fc.NoHistory != nil {
		cfg.NoHistory = *fc.NoHistory
	}
}

// FindConfigFile resolves the configuration file path:
//  1. an explicit path, if given (empty string returned when it is missing)
//  2. config.yaml in the XDG config directory
//
// Returns an empty string when no file is found.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	candidate := filepath.Join(XDGConfigDir(), DefaultConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
