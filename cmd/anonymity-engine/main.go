// Package main provides the entry point for the anonymity-engine CLI.
//
// anonymity-engine periodically rotates the exit IP of a local Tor daemon
// by reloading it and verifying the public address through the SOCKS proxy.
//
// Usage:
//
//	anonymity-engine rotate --interval 60 --count 10
//	anonymity-engine check
//
// See --help for all available options.
package main

// main is the entry point for anonymity-engine.
func main() {
	Execute()
}
