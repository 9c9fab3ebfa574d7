package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Ports and timings match the standard Tor daemon installation on Linux
// (SOCKS on 9050, control port on 9051) so the tool works out of the box.
const (
	// DefaultSocksPort is the Tor daemon's default SOCKS5 listener port.
	DefaultSocksPort = 9050

	// DefaultControlPort is the Tor daemon's default control port.
	// It is not strictly required for rotation (reloads go through the
	// service manager or a signal), but is recorded for diagnostics and
	// used by the embedded daemon mode.
	DefaultControlPort = 9051

	// DefaultTimeout is the per-request timeout for IP verification.
	// Tor circuits add multiple relay hops, so this is more generous
	// than a typical clearnet HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryAttempts is the number of requests issued against a
	// single IP-echo endpoint before moving on to the next one.
	DefaultRetryAttempts = 3

	// DefaultServiceName is the service-manager unit name of the Tor daemon.
	DefaultServiceName = "tor"

	// DefaultTorBinary is the daemon binary name looked up on PATH and
	// targeted by the direct-signal rotation fallback.
	DefaultTorBinary = "tor"

	// MinRotationInterval and MaxRotationInterval bound the operator-chosen
	// rotation interval in seconds. Anything below 10 seconds gives Tor no
	// time to build a fresh circuit; anything above an hour is better served
	// by running the tool on demand.
	MinRotationInterval = 10
	MaxRotationInterval = 3600

	// MaxChangeCount is the upper bound for the operator-chosen number of
	// IP changes. Zero means unbounded.
	MaxChangeCount = 9999

	// DefaultSettleDelay is how long to wait after a successful reload
	// before verifying the new exit IP. Tor needs a moment to negotiate
	// the replacement circuit.
	DefaultSettleDelay = 2 * time.Second

	// DefaultRetryBackoff is the pause between failed verification attempts
	// against the same endpoint.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultStartGrace is how long the supervisor waits after launching
	// the daemon directly before testing the SOCKS port.
	DefaultStartGrace = 5 * time.Second

	// DefaultCommandTimeout bounds each service-manager invocation.
	DefaultCommandTimeout = 30 * time.Second

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap when --embedded-tor is used.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "anonymity-engine"

	// DefaultLogFileName is the log file created in the system temporary
	// directory. Log output always goes to stdout as well.
	DefaultLogFileName = "anonymity-engine.log"
)

// DefaultEndpoints is the ordered list of public IP-echo services queried
// through the SOCKS proxy. Order matters: the first endpoint that yields a
// valid address wins and the rest are never contacted.
var DefaultEndpoints = []string{
	"http://checkip.amazonaws.com",
	"http://ipinfo.io/ip",
	"http://icanhazip.com",
	"http://httpbin.org/ip",
}

// Config holds all tunables for the rotation tool. It is populated from
// defaults, optionally overlaid with a YAML config file, then with CLI
// flags, and never mutated after startup.
//
// Design decision: a single flat struct passed by pointer through the
// application via dependency injection, mirroring the rest of the codebase.
// The option count is small enough that nested sub-structs would only add
// noise.
type Config struct {
	// SocksPort is the local Tor SOCKS5 proxy port on 127.0.0.1.
	SocksPort int

	// ControlPort is the local Tor control port on 127.0.0.1.
	ControlPort int

	// Timeout is the per-request timeout for IP verification and the
	// default per-invocation timeout for service-manager commands.
	Timeout time.Duration

	// RetryAttempts is the number of tries per IP-echo endpoint.
	RetryAttempts int

	// RetryBackoff is the pause between retries against the same endpoint.
	RetryBackoff time.Duration

	// ServiceName is the Tor unit name passed to systemctl and service.
	ServiceName string

	// TorBinary is the daemon binary name used for PATH lookup, direct
	// launch, and the SIGHUP fallback.
	TorBinary string

	// Endpoints is the ordered IP-echo endpoint list.
	Endpoints []string

	// Interval is the pause between rotations. Zero means "not yet chosen";
	// the rotate command prompts the operator in that case.
	Interval time.Duration

	// ChangeCount is the rotation budget. Zero means unbounded.
	ChangeCount int

	// ChangeCountSet records whether the budget was provided via flag or
	// config file. Needed because zero is a meaningful value (unbounded).
	ChangeCountSet bool

	// SettleDelay is the wait between a successful reload and verification.
	SettleDelay time.Duration

	// EmbeddedTor launches a private Tor daemon via tornago instead of
	// using the system service. Service-manager strategies do not apply
	// in this mode.
	EmbeddedTor bool

	// TorStartupTimeout bounds embedded daemon bootstrap.
	TorStartupTimeout time.Duration

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// JSONLog switches log output from text to JSON lines.
	JSONLog bool

	// LogFile is the log file path. Empty selects the default file in the
	// system temporary directory.
	LogFile string

	// HistoryDir is the directory holding the SQLite history database.
	// Empty selects the XDG data directory.
	HistoryDir string

	// NoHistory disables session persistence entirely.
	NoHistory bool

	// ConfigFilePath is an explicit YAML config file path. Empty triggers
	// the default XDG lookup.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
//
// Design decision: a constructor rather than zero values because almost
// every default is non-zero, and the constructor doubles as documentation
// of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SocksPort:         DefaultSocksPort,
		ControlPort:       DefaultControlPort,
		Timeout:           DefaultTimeout,
		RetryAttempts:     DefaultRetryAttempts,
		RetryBackoff:      DefaultRetryBackoff,
		ServiceName:       DefaultServiceName,
		TorBinary:         DefaultTorBinary,
		Endpoints:         append([]string(nil), DefaultEndpoints...),
		SettleDelay:       DefaultSettleDelay,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// SocksAddress returns the SOCKS proxy address in "host:port" form.
// We use 127.0.0.1 instead of localhost to avoid DNS resolution and
// IPv6 ambiguity.
func (c *Config) SocksAddress() string {
	return "127.0.0.1:" + strconv.Itoa(c.SocksPort)
}

// LogFilePath returns the effective log file path.
func (c *Config) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(os.TempDir(), DefaultLogFileName)
}

// HistoryDirPath returns the effective history database directory.
func (c *Config) HistoryDirPath() string {
	if c.HistoryDir != "" {
		return c.HistoryDir
	}
	return XDGDataDir()
}

// XDGDataDir returns the XDG data directory for the tool.
// On Linux: ~/.local/share/anonymity-engine
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the tool.
// On Linux: ~/.config/anonymity-engine
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns a sentinel error describing
// the first problem found. It is called once after flag and file merging,
// before any network or subprocess activity.
//
// We return the first error found rather than collecting all of them
// because fixing one error often makes the others irrelevant.
func (c *Config) Validate() error {
	if c.SocksPort < 1 || c.SocksPort > 65535 {
		return ErrInvalidSocksPort
	}
	if c.ControlPort < 1 || c.ControlPort > 65535 {
		return ErrInvalidControlPort
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	if c.Interval != 0 {
		secs := int(c.Interval / time.Second)
		if secs < MinRotationInterval || secs > MaxRotationInterval {
			return ErrIntervalOutOfRange
		}
	}
	if c.ChangeCount < 0 || c.ChangeCount > MaxChangeCount {
		return ErrCountOutOfRange
	}
	if c.ServiceName == "" {
		return ErrNoServiceName
	}
	return nil
}
