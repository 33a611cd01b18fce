// Package history persists pipeline run results in SQLite.
//
// The pipeline records each run when it starts and again when it finishes, so
// a row always reflects the latest known state of its run. Writes retry with
// exponential backoff while SQLite reports the database as busy, which happens
// when the CLI and the HTTP server share one state directory.
package history
