// Package config provides configuration structures and utilities for the
// rotation tool. It defines the tunables for the Tor SOCKS proxy, the IP
// verification policy, and the rotation loop, along with YAML file loading
// and XDG directory resolution.
package config
