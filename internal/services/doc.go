// Package services defines shared utilities consumed by the archive workflow
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent queue statuses (failed vs rejected).
//
// Integrations with external services live in subpackages (github).
package services
