package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zioerenkl/AnonymityEngine/internal/execx"
)

// capabilityTimeout bounds each capability probe command. These are local
// service-manager queries; anything slower than this is effectively broken.
const capabilityTimeout = 10 * time.Second

// Capabilities is a bitmask of service-manager permissions discovered at
// startup. The rotation controller filters its reload strategies by it:
// a run without sudo never schedules the sudo-systemctl reload, instead of
// discovering the failure on the first rotation.
type Capabilities uint8

const (
	// CapSystemd is set when systemctl answers status queries at all.
	CapSystemd Capabilities = 1 << iota

	// CapSudo is set when non-interactive sudo works for systemctl.
	CapSudo
)

// Has reports whether all bits in want are present.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

// String lists the capabilities for logs and the check command.
func (c Capabilities) String() string {
	switch {
	case c.Has(CapSystemd | CapSudo):
		return "systemd+sudo"
	case c.Has(CapSystemd):
		return "systemd"
	case c.Has(CapSudo):
		return "sudo"
	default:
		return "none"
	}
}

// Verdict is the result of an environment probe: a pass/fail with a
// human-readable reason, plus the discovered daemon path and capabilities.
type Verdict struct {
	// OK is false when the environment cannot run the tool at all.
	OK bool

	// Reason explains a failed verdict.
	Reason string

	// TorPath is the resolved daemon binary path when found.
	TorPath string

	// Caps holds the discovered service-manager capabilities. Capability
	// probing never fails the verdict; limited permissions only narrow the
	// rotation strategies available later.
	Caps Capabilities

	// Warnings collects non-fatal findings worth surfacing to the operator.
	Warnings []string
}

// Prober checks whether the host can run the rotation loop.
type Prober struct {
	runner      execx.Runner
	logger      *slog.Logger
	serviceName string
	torBinary   string
	goos        string
}

// Option configures a Prober.
type Option func(*Prober)

// WithGOOS overrides the detected operating system. Tests use this to
// exercise the unsupported-platform path.
func WithGOOS(goos string) Option {
	return func(p *Prober) {
		p.goos = goos
	}
}

// WithLogger sets the logger; defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// New creates a Prober for the given service and binary names.
func New(runner execx.Runner, serviceName, torBinary string, opts ...Option) *Prober {
	p := &Prober{
		runner:      runner,
		serviceName: serviceName,
		torBinary:   torBinary,
		goos:        defaultGOOS,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run performs the checks in order: platform, daemon binary, then the
// non-fatal capability probe.
func (p *Prober) Run(ctx context.Context) Verdict {
	if p.goos != "linux" {
		return Verdict{
			OK:     false,
			Reason: fmt.Sprintf("unsupported platform %q: this tool controls a Linux service manager", p.goos),
		}
	}

	path, err := p.runner.LookPath(p.torBinary)
	if err != nil {
		return Verdict{
			OK:     false,
			Reason: fmt.Sprintf("%s binary not found on PATH: install the Tor daemon (e.g. apt install tor)", p.torBinary),
		}
	}

	v := Verdict{OK: true, TorPath: path}
	v.Caps, v.Warnings = p.probeCapabilities(ctx)

	p.logger.Debug("environment probe complete",
		"tor_path", v.TorPath,
		"capabilities", v.Caps.String(),
	)
	return v
}

// probeCapabilities discovers what the current user may do with the
// service manager. Every failure here is a warning, not an error: the
// rotation mechanism has fallbacks that work without any of it.
func (p *Prober) probeCapabilities(ctx context.Context) (Capabilities, []string) {
	var caps Capabilities
	var warnings []string

	// "is-active" exits non-zero for a stopped unit but still proves
	// systemctl is present and answering; only a transport error counts
	// as systemd being unreachable.
	if _, err := p.runner.Run(ctx, capabilityTimeout, "systemctl", "is-active", p.serviceName); err == nil {
		caps |= CapSystemd
	} else {
		warnings = append(warnings, "systemctl unavailable: service-manager reloads will be skipped")
	}

	// "sudo -n true" answers whether sudo works without a password prompt.
	// An interactive prompt inside the rotation loop would hang the timer.
	if res, err := p.runner.Run(ctx, capabilityTimeout, "sudo", "-n", "true"); err == nil && res.Succeeded() {
		caps |= CapSudo
	} else {
		warnings = append(warnings, "non-interactive sudo unavailable: privileged reloads will be skipped")
	}

	return caps, warnings
}
