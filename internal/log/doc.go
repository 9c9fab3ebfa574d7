// Package log builds the application logger on top of the standard slog
// package. It provides:
//   - fan-out of every record to stdout and a log file
//   - automatic masking of sensitive attribute values (control-port
//     passwords, cookies, tokens) before they reach any sink
//   - text or JSON output with a verbosity switch
//
// Components receive a *slog.Logger via dependency injection rather than
// using package-level state.
package log
