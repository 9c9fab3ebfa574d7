package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: package-level sentinel errors rather than fmt.Errorf at
// each call site, so callers can use errors.Is for programmatic handling
// while the messages stay human-readable.
var (
	// ErrInvalidSocksPort is returned when the SOCKS port is outside 1-65535.
	ErrInvalidSocksPort = errors.New("invalid socks port: must be between 1 and 65535")

	// ErrInvalidControlPort is returned when the control port is outside 1-65535.
	ErrInvalidControlPort = errors.New("invalid control port: must be between 1 and 65535")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryAttempts is returned when the per-endpoint retry count
	// is below one. Zero retries would mean the verifier never issues a request.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be at least 1")

	// ErrNoEndpoints is returned when the IP-echo endpoint list is empty.
	ErrNoEndpoints = errors.New("no IP-echo endpoints configured")

	// ErrIntervalOutOfRange is returned when the rotation interval is outside
	// the configured min/max bounds.
	ErrIntervalOutOfRange = errors.New("rotation interval out of range: must be between 10 and 3600 seconds")

	// ErrCountOutOfRange is returned when the change budget is negative or
	// above the maximum. Zero is valid and means unbounded.
	ErrCountOutOfRange = errors.New("change count out of range: must be between 0 and 9999")

	// ErrNoServiceName is returned when the Tor service name is empty.
	ErrNoServiceName = errors.New("service name must not be empty")
)

// ErrConfigNotFound is returned by LoadFile when the configuration file
// does not exist. Callers decide whether that is fatal based on whether
// the path was explicitly specified by the operator.
var ErrConfigNotFound = errors.New("configuration file not found")
