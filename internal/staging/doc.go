// Package staging names and sweeps the per-run directories the HTTP server
// creates: <work_dir>/runs/<run_id> for intermediate artifacts and
// <upload_dir>/<run_id> for the stored narration.
//
// Directories are removed when they are older than a cutoff or when no run
// with their name remains in history. Removal failures are collected and
// logged; they never abort a sweep.
package staging
