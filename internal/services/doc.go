// Package services defines shared utilities consumed by the pipeline stages and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, segment positions, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, so every stage reports
//     failures that the orchestrator and run history can classify with Kind.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
