// Package pipeline runs segmentation, transcription, and composition in order
// and reports the outcome of the whole run.
//
// A run moves through started, segmented, transcribed (when an endpoint is
// configured), and composed before succeeding. The first failing stage stops
// the run: artifacts already written stay on disk, the Result is marked
// failed with the error text, and the error is returned alongside it.
//
// Runs on the same work directory are serialised with a file lock; a second
// run fails fast instead of interleaving chunk files. Every run gets a UUID
// that is attached to the context, the logs, and the history recorder.
package pipeline
