// Package service supervises the system Tor daemon: it queries the
// service manager for the unit's state and walks a ladder of start
// methods (sudo systemctl, user systemctl, direct launch) until one
// brings the daemon up.
package service
