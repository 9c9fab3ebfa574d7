package execx

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// FakeRunner is a scriptable Runner for tests. Responses are keyed by the
// joined command line ("systemctl is-active tor"); unmatched commands fail
// with ErrNotScripted so tests notice unexpected invocations.
//
// Kept in the non-test tree because several packages (probe, service,
// rotation) share it in their tests.
type FakeRunner struct {
	mu sync.Mutex

	// Responses maps a full command line to its scripted result.
	Responses map[string]FakeResponse

	// Calls records every Run invocation in order.
	Calls []string

	// Started records every Start invocation in order.
	Started []string

	// Paths maps binary names to LookPath results; missing names fail.
	Paths map[string]string
}

// FakeResponse scripts one command's outcome.
type FakeResponse struct {
	Result Result
	Err    error
}

// ErrNotScripted is returned for commands the fake was not prepared for.
var ErrNotScripted = errors.New("execx: command not scripted")

// NewFakeRunner returns an empty fake.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string]FakeResponse),
		Paths:     make(map[string]string),
	}
}

// Script registers a response for the given command line.
func (f *FakeRunner) Script(cmdline string, exitCode int, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[cmdline] = FakeResponse{Result: Result{Output: output, ExitCode: exitCode}}
}

// ScriptError registers a transport-level failure for the given command line.
func (f *FakeRunner) ScriptError(cmdline string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[cmdline] = FakeResponse{Result: Result{ExitCode: -1}, Err: err}
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, _ time.Duration, name string, args ...string) (Result, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmdline)

	if resp, ok := f.Responses[cmdline]; ok {
		return resp.Result, resp.Err
	}
	return Result{ExitCode: -1}, ErrNotScripted
}

// Start implements Runner.
func (f *FakeRunner) Start(name string, args ...string) error {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Started = append(f.Started, cmdline)
	return nil
}

// LookPath implements Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

// CallCount returns how many times the given command line was run.
func (f *FakeRunner) CallCount(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == cmdline {
			n++
		}
	}
	return n
}
