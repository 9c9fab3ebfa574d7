// Package rotation implements the IP rotation loop: a timer-driven
// controller that asks the Tor daemon to reload through an ordered list
// of fallback strategies, verifies the resulting exit IP, and keeps the
// session's change accounting. Shutdown is cooperative via a single
// atomic flag written by the signal handler.
package rotation
