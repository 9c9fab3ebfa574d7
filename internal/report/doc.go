// Package report renders finished rotation sessions for output.
//
// Three formats are provided:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: Markdown tables for documentation
//   - JSONWriter: machine-readable output for tooling
//
// All writers implement the Writer interface, and MultiWriter fans a
// single summary out to several destinations at once.
package report
