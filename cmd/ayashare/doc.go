// Package main hosts the ayashare CLI.
//
// "run" executes the whole pipeline on one recording; "segment",
// "transcribe", and "compose" run a single stage against a work directory so
// a failed run can be resumed by hand. "serve" exposes the pipeline over HTTP,
// "history" reads recorded runs, and "doctor" reports missing tools, paths,
// or endpoints before a run wastes time on them.
//
// Commands stay thin: configuration, stage wiring, and rendering of results
// live here, the work itself in internal packages.
package main
