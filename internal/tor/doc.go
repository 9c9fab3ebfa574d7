// Package tor provides connectivity to the local Tor daemon's SOCKS5
// proxy: a dialer-backed HTTP client for the IP verifier, a handshake-based
// proxy check, and an optional tornago-managed embedded daemon for hosts
// without a system Tor service.
//
// The package only talks to the proxy; starting and reloading the system
// daemon is the job of the service and rotation packages.
package tor
