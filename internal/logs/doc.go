// Package logs reads the daily ayashare log files for the `logs` command and
// the HTTP log endpoint.
//
// Tail returns either the last N lines of a file or everything after a byte
// offset, and can poll for new lines in follow mode. Offsets returned by one
// call feed the next, so callers can page through a growing file.
package logs
