package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/execx"
	"github.com/zioerenkl/AnonymityEngine/internal/probe"
)

// ErrAllStrategiesFailed is returned by a rotator when every reload
// strategy has been tried without success. It is reported, never fatal:
// the loop continues to the next scheduled interval.
var ErrAllStrategiesFailed = errors.New("all reload strategies failed")

// Strategy is one way of asking the Tor daemon to reload its
// configuration, which tears down and renegotiates circuits.
//
// Design decision (replacing the original's exception-based fallback):
// strategies form an explicit ordered list evaluated by a loop that stops
// at the first success, each returning a plain error.
type Strategy interface {
	// Name identifies the strategy in logs and rotation events.
	Name() string

	// Reload asks the daemon to reload. A nil return means the daemon
	// acknowledged the request, not that the exit IP changed.
	Reload(ctx context.Context) error
}

// commandStrategy runs a single service-manager command line.
type commandStrategy struct {
	name    string
	runner  execx.Runner
	timeout time.Duration
	argv    []string
}

// Name implements Strategy.
func (s *commandStrategy) Name() string {
	return s.name
}

// Reload implements Strategy.
func (s *commandStrategy) Reload(ctx context.Context) error {
	res, err := s.runner.Run(ctx, s.timeout, s.argv[0], s.argv[1:]...)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if !res.Succeeded() {
		return fmt.Errorf("%s: exit %d: %s", s.name, res.ExitCode, res.Output)
	}
	return nil
}

// StrategyConfig carries what BuildStrategies needs to assemble the list.
type StrategyConfig struct {
	// ServiceName is the Tor unit name.
	ServiceName string

	// TorBinary is the daemon process name targeted by the signal fallback.
	TorBinary string

	// CommandTimeout bounds each strategy's command.
	CommandTimeout time.Duration

	// Caps gates the privileged strategies. A run without sudo never
	// schedules them, so their failure is known before the loop starts
	// instead of being rediscovered at every rotation.
	Caps probe.Capabilities

	// Embedded disables the service-manager strategies entirely: an
	// embedded daemon is not a unit, only the signal can reach it.
	Embedded bool
}

// BuildStrategies assembles the ordered reload strategy list:
//
//  1. graceful reload via the service manager (sudo systemctl reload)
//  2. reload via the generic service-control command (sudo service reload)
//  3. a HUP signal sent straight to the daemon process
//
// The signal strategy is always present; it is the one mechanism that
// needs neither systemd nor root when the daemon belongs to this user.
func BuildStrategies(runner execx.Runner, cfg StrategyConfig) []Strategy {
	var strategies []Strategy

	if !cfg.Embedded && cfg.Caps.Has(probe.CapSystemd|probe.CapSudo) {
		strategies = append(strategies, &commandStrategy{
			name:    "systemd-reload",
			runner:  runner,
			timeout: cfg.CommandTimeout,
			argv:    []string{"sudo", "systemctl", "reload", cfg.ServiceName},
		})
	}

	if !cfg.Embedded && cfg.Caps.Has(probe.CapSudo) {
		strategies = append(strategies, &commandStrategy{
			name:    "service-reload",
			runner:  runner,
			timeout: cfg.CommandTimeout,
			argv:    []string{"sudo", "service", cfg.ServiceName, "reload"},
		})
	}

	argv := []string{"pkill", "-HUP", "-x", cfg.TorBinary}
	if cfg.Caps.Has(probe.CapSudo) && !cfg.Embedded {
		argv = append([]string{"sudo"}, argv...)
	}
	strategies = append(strategies, &commandStrategy{
		name:    "signal-hup",
		runner:  runner,
		timeout: cfg.CommandTimeout,
		argv:    argv,
	})

	return strategies
}

// reload walks the strategy list and returns the name of the first one
// that succeeds, or ErrAllStrategiesFailed.
func reload(ctx context.Context, strategies []Strategy, logf func(name string, err error)) (string, error) {
	for _, s := range strategies {
		err := s.Reload(ctx)
		if err == nil {
			return s.Name(), nil
		}
		logf(s.Name(), err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", ErrAllStrategiesFailed
}
