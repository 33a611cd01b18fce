// Package config loads, normalizes, and validates ayashare configuration data.
//
// It supplies repository defaults (the silence-split, transcription, and video
// parameters the pipeline was tuned with), expands user paths including tilde
// shortcuts, reads TOML files, and honours environment fallbacks such as
// AYASHARE_TRANSCRIPTION_ENDPOINT and OPENAI_API_KEY.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
