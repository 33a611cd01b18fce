// Package preflight provides readiness checks for the executables, paths,
// and endpoints the pipeline depends on.
//
// The CLI "doctor" command prints every result; "run" and "serve" call
// RunAll first and refuse to start when a required check fails.
package preflight
