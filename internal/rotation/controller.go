package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/model"
	"github.com/zioerenkl/AnonymityEngine/internal/probe"
)

// EnvironmentChecker is the startup environment probe.
type EnvironmentChecker interface {
	Run(ctx context.Context) probe.Verdict
}

// DaemonSupervisor ensures the Tor daemon is running.
type DaemonSupervisor interface {
	EnsureRunning(ctx context.Context) error
}

// IPProber reports the current exit IP.
type IPProber interface {
	Probe(ctx context.Context) (string, error)
}

// Controller owns the rotation loop. It moves through four states:
// initializing (probe, supervise, baseline verify — any failure fatal),
// idle (interval sleep), rotating (strategy ladder, settle, verify), and
// stopped (budget reached or shutdown signal).
//
// All session state lives in the session field and is touched only by the
// goroutine running Run. The one exception is the stop flag: RequestStop
// is called from the signal handler and performs a single atomic store,
// safe at any suspension point.
type Controller struct {
	checker    EnvironmentChecker
	supervisor DaemonSupervisor
	prober     IPProber
	strategies []Strategy
	logger     *slog.Logger

	// interval is the pause between rotations.
	interval time.Duration

	// budget is the number of successful changes to perform; 0 = unbounded.
	budget int

	// settle is the wait between a successful reload and verification.
	settle time.Duration

	// skipSupervisor is set in embedded mode, where there is no system
	// service to supervise.
	skipSupervisor bool

	// stop is the shutdown flag. Only RequestStop writes it; the loop
	// reads it at sleep boundaries, never mid-sleep.
	stop atomic.Bool

	// currentIP is the last observed exit address, empty when unknown.
	// Owned exclusively by the Run goroutine.
	currentIP string

	// session accumulates the run in progress.
	session *model.SessionSummary

	// sleep is swapped out in tests.
	sleep func(time.Duration)

	// now is swapped out in tests.
	now func() time.Time

	// onRotate, when set, observes each rotation event as it happens.
	onRotate func(model.RotationEvent)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSettleDelay sets the post-reload settle wait.
func WithSettleDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.settle = d
	}
}

// WithSkipSupervisor disables the daemon supervisor step. Used in
// embedded mode where the daemon lifecycle belongs to tornago.
func WithSkipSupervisor() ControllerOption {
	return func(c *Controller) {
		c.skipSupervisor = true
	}
}

// WithRotateObserver registers a callback invoked after every rotation
// attempt, in loop order. The history store hangs off this.
func WithRotateObserver(fn func(model.RotationEvent)) ControllerOption {
	return func(c *Controller) {
		c.onRotate = fn
	}
}

// withSleep replaces the sleep function. Tests only.
func withSleep(fn func(time.Duration)) ControllerOption {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// withNow replaces the clock. Tests only.
func withNow(fn func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = fn
	}
}

// NewController wires the rotation loop together.
func NewController(
	checker EnvironmentChecker,
	supervisor DaemonSupervisor,
	prober IPProber,
	strategies []Strategy,
	interval time.Duration,
	budget int,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		checker:    checker,
		supervisor: supervisor,
		prober:     prober,
		strategies: strategies,
		interval:   interval,
		budget:     budget,
		settle:     2 * time.Second,
		sleep:      time.Sleep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// RequestStop asks the loop to finish after the current sleep or rotation
// completes. Safe to call from a signal handler goroutine; it performs a
// single atomic store and nothing else.
func (c *Controller) RequestStop() {
	c.stop.Store(true)
}

// Stopping reports whether a stop has been requested.
func (c *Controller) Stopping() bool {
	return c.stop.Load()
}

// Run executes the rotation session and returns its summary. An error is
// returned only for initialization failures; once the loop is entered,
// every failure is recorded in the session and the loop continues.
func (c *Controller) Run(ctx context.Context) (*model.SessionSummary, error) {
	c.session = &model.SessionSummary{
		StartedAt: c.now(),
		Interval:  c.interval,
		Budget:    c.budget,
		Cause:     model.EndCauseError,
	}

	if err := c.initialize(ctx); err != nil {
		c.session.EndedAt = c.now()
		return c.session, err
	}

	c.logger.Info("starting rotation loop",
		"interval", c.interval,
		"budget", c.budget,
		"initial_ip", c.session.InitialIP,
	)

	c.session.Cause = c.loop(ctx)
	c.session.EndedAt = c.now()

	c.logger.Info("rotation loop finished",
		"cause", c.session.Cause.String(),
		"attempts", c.session.Attempts,
		"changes", c.session.Changes,
	)
	return c.session, nil
}

// initialize performs the startup checks. Every failure here is fatal:
// an environment that cannot pass them cannot rotate either.
func (c *Controller) initialize(ctx context.Context) error {
	verdict := c.checker.Run(ctx)
	if !verdict.OK {
		return fmt.Errorf("environment check failed: %s", verdict.Reason)
	}
	for _, w := range verdict.Warnings {
		c.logger.Warn(w)
	}

	if !c.skipSupervisor {
		if err := c.supervisor.EnsureRunning(ctx); err != nil {
			return fmt.Errorf("failed to ensure Tor daemon is running: %w", err)
		}
	}

	// The baseline probe doubles as the proxy connectivity self-test.
	ip, err := c.prober.Probe(ctx)
	if err != nil {
		return fmt.Errorf("connectivity self-test failed: %w", err)
	}
	c.currentIP = ip
	c.session.InitialIP = ip
	c.session.FinalIP = ip

	return nil
}

// loop alternates Idle and Rotating until the budget or the stop flag
// ends it.
func (c *Controller) loop(ctx context.Context) model.EndCause {
	for {
		// A signal raised during the previous rotation (settle wait,
		// verification retries) ends the session here, before another
		// interval is slept away.
		if c.stop.Load() || ctx.Err() != nil {
			return model.EndCauseSignal
		}
		if c.budget > 0 && c.session.Changes >= c.budget {
			return model.EndCauseBudget
		}

		// The interval wait is a plain sleep: the stop flag is observed
		// only after it returns, never mid-sleep.
		c.sleep(c.interval)

		if c.stop.Load() || ctx.Err() != nil {
			return model.EndCauseSignal
		}

		c.rotate(ctx)
	}
}

// rotate performs one rotation attempt and records the outcome.
func (c *Controller) rotate(ctx context.Context) {
	ev := model.RotationEvent{
		Timestamp: c.now(),
		OldIP:     c.currentIP,
	}

	name, err := reload(ctx, c.strategies, func(name string, err error) {
		c.logger.Debug("reload strategy failed", "strategy", name, "error", err)
	})
	if err != nil {
		ev.Error = err.Error()
		c.logger.Warn("rotation failed: no reload strategy succeeded")
		c.record(ev)
		return
	}
	ev.Strategy = name

	// Give Tor a moment to negotiate the replacement circuit.
	c.sleep(c.settle)

	newIP, err := c.prober.Probe(ctx)
	if err != nil {
		ev.Error = err.Error()
		c.logger.Warn("could not verify new IP after reload", "strategy", name, "error", err)
		c.record(ev)
		return
	}

	ev.NewIP = newIP
	if newIP != c.currentIP {
		ev.Changed = true
		c.logger.Info("exit IP changed",
			"old_ip", c.currentIP,
			"new_ip", newIP,
			"strategy", name,
		)
		c.currentIP = newIP
	} else {
		c.logger.Info("exit IP unchanged after reload", "ip", newIP, "strategy", name)
	}
	c.record(ev)
}

// record applies an event to the session and notifies the observer.
func (c *Controller) record(ev model.RotationEvent) {
	c.session.RecordEvent(ev)
	if c.onRotate != nil {
		c.onRotate(ev)
	}
}
