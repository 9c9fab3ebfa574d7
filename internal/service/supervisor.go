package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/execx"
)

// ErrCannotStart is returned when every start method has been exhausted
// and the daemon is still unreachable.
var ErrCannotStart = errors.New("could not start the Tor daemon by any method")

// ConnectivityTest reports whether the daemon's SOCKS port answers.
// The supervisor uses it after a direct launch, where no service manager
// can confirm the daemon came up.
type ConnectivityTest func(ctx context.Context) bool

// Supervisor ensures the Tor daemon is running before the rotation loop
// starts. Methods are tried in order of decreasing politeness: ask the
// service manager first (privileged, then unprivileged) and only launch
// the binary directly when no manager will cooperate.
//
// A method failing falls through to the next; only exhausting all of them
// is an error.
type Supervisor struct {
	runner      execx.Runner
	logger      *slog.Logger
	serviceName string
	torBinary   string

	// cmdTimeout bounds each service-manager invocation.
	cmdTimeout time.Duration

	// startGrace is the wait after a start before trusting it.
	startGrace time.Duration

	// connTest verifies the SOCKS port after a direct launch. When nil,
	// the grace wait alone decides.
	connTest ConnectivityTest

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithCommandTimeout bounds each service-manager command.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.cmdTimeout = d
	}
}

// WithStartGrace sets the wait after starting the daemon before the
// supervisor declares success or tests connectivity.
func WithStartGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		s.startGrace = d
	}
}

// WithConnectivityTest sets the SOCKS connectivity check used after a
// direct daemon launch.
func WithConnectivityTest(fn ConnectivityTest) Option {
	return func(s *Supervisor) {
		s.connTest = fn
	}
}

// withSleep replaces the sleep function. Tests only.
func withSleep(fn func(time.Duration)) Option {
	return func(s *Supervisor) {
		s.sleep = fn
	}
}

// New creates a Supervisor for the given unit and binary names.
func New(runner execx.Runner, serviceName, torBinary string, opts ...Option) *Supervisor {
	s := &Supervisor{
		runner:      runner,
		serviceName: serviceName,
		torBinary:   torBinary,
		cmdTimeout:  30 * time.Second,
		startGrace:  5 * time.Second,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// EnsureRunning checks the daemon's service status and starts it if
// needed. It returns nil as soon as one method reports the daemon up.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.isActive(ctx) {
		s.logger.Info("Tor service is already running", "service", s.serviceName)
		return nil
	}

	s.logger.Info("Tor service is not active, attempting to start", "service", s.serviceName)

	if s.startViaSystemd(ctx, true) || s.startViaSystemd(ctx, false) {
		return nil
	}

	return s.startDirectly(ctx)
}

// isActive queries systemctl for the unit state.
func (s *Supervisor) isActive(ctx context.Context) bool {
	res, err := s.runner.Run(ctx, s.cmdTimeout, "systemctl", "is-active", s.serviceName)
	return err == nil && res.Succeeded() && res.Output == "active"
}

// startViaSystemd asks the service manager to start the unit, with sudo
// when privileged is set and as a user unit otherwise. After a successful
// command the grace wait gives the daemon time to open its listeners.
func (s *Supervisor) startViaSystemd(ctx context.Context, privileged bool) bool {
	var args []string
	name := "systemctl"
	if privileged {
		name = "sudo"
		args = []string{"systemctl", "start", s.serviceName}
	} else {
		args = []string{"--user", "start", s.serviceName}
	}

	res, err := s.runner.Run(ctx, s.cmdTimeout, name, args...)
	if err != nil || !res.Succeeded() {
		s.logger.Debug("service start attempt failed",
			"privileged", privileged,
			"output", res.Output,
			"error", err,
		)
		return false
	}

	s.sleep(s.startGrace)
	s.logger.Info("Tor service started", "service", s.serviceName, "privileged", privileged)
	return true
}

// startDirectly launches the daemon binary detached, waits the grace
// period, and trusts the connectivity test (when configured) to confirm.
func (s *Supervisor) startDirectly(ctx context.Context) error {
	s.logger.Warn("service manager unavailable, launching the daemon directly", "binary", s.torBinary)

	if err := s.runner.Start(s.torBinary); err != nil {
		s.logger.Error("direct daemon launch failed", "error", err)
		return ErrCannotStart
	}

	s.sleep(s.startGrace)

	if s.connTest != nil && !s.connTest(ctx) {
		s.logger.Error("daemon launched but SOCKS port did not come up")
		return ErrCannotStart
	}

	s.logger.Info("Tor daemon launched directly", "binary", s.torBinary)
	return nil
}
