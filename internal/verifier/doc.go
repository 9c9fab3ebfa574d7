// Package verifier determines the visible Tor exit IP by querying public
// IP-echo services through the local SOCKS5 proxy. It implements the
// ordered-endpoint, per-endpoint-retry policy of the rotation loop and
// the concurrent health sweep used by the check command.
package verifier
