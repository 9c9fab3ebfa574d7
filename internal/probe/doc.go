// Package probe checks whether the host environment can run the rotation
// loop: supported platform, Tor daemon binary on PATH, and service-manager
// permissions. The permission probe is deliberately non-fatal; its result
// only narrows which reload strategies the controller schedules.
package probe
