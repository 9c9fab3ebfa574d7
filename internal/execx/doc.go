// Package execx wraps subprocess execution behind a small Runner interface
// so that the components talking to the service manager (probe, supervisor,
// rotation strategies) can be exercised in tests without a real systemctl
// or tor binary on the machine.
package execx
