// Package logging assembles structured slog loggers and formatting helpers used
// across the ayashare pipeline.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so stage code can tag log lines with run
// IDs, stages, and segment positions. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
//
// Loggers are always injected into components; nothing in the pipeline reads a
// package-level logger.
package logging
