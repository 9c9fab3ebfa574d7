package execx

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Result holds the outcome of a finished command.
type Result struct {
	// Output is the combined stdout and stderr, trimmed of trailing
	// whitespace. Service-manager tools put diagnostics on either stream.
	Output string

	// ExitCode is the process exit code; -1 when the process did not run
	// or was killed by the timeout.
	ExitCode int
}

// Succeeded reports whether the command exited zero.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner executes external commands. The production implementation shells
// out via os/exec; tests substitute fakes so no systemctl or tor binary is
// needed.
//
// A failed command is not an error at this layer: callers inspect the exit
// code because non-zero exits are expected answers (e.g. "systemctl
// is-active" on a stopped unit). The error return covers only the cases
// where the command could not produce an answer at all (binary missing,
// timeout).
type Runner interface {
	// Run executes name with args and waits for completion, bounded by
	// timeout. A zero timeout means no bound beyond ctx.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)

	// Start launches name with args detached from the current process and
	// returns without waiting. Used to spawn the daemon directly when the
	// service manager is unavailable.
	Start(name string, args ...string) error

	// LookPath reports whether name is resolvable on the search path.
	LookPath(name string) (string, error)
}

// OSRunner is the production Runner backed by os/exec.
type OSRunner struct{}

// NewOSRunner returns a Runner that executes real processes.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

// Run implements Runner.
func (r *OSRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	result := Result{
		Output:   strings.TrimSpace(string(out)),
		ExitCode: -1,
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		// A timed-out process is killed and also surfaces as an ExitError
		// ("signal: killed"), so the deadline must be checked first.
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		// A non-zero exit is an answer, not a transport failure.
		if _, ok := err.(*exec.ExitError); ok {
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// Start implements Runner. Stdout and stderr are discarded; the daemon
// manages its own logging. The child is released so it survives our exit.
func (r *OSRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// LookPath implements Runner.
func (r *OSRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
