// Package config loads, normalizes, and validates curator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and clamps scanner/quality/safety settings
// into usable shapes. The Config type centralizes every knob the pipeline
// needs so staging, library, and source directories are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors. In particular the
// quality-score ordering guarantees (RAW above JPEG, organized folders above
// backup folders) are enforced here so the grouper can rely on them.
package config
