// Package config loads, normalizes, and validates archivist configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDEO_BUCKET_NAME and ARCHIVIST_GITHUB_TOKEN. Obtain settings through this
// package so downstream code receives sanitized paths and clear validation
// errors.
package config
