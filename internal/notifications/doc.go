// Package notifications delivers archive outcomes via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// workflow code can publish unconditionally. Per-event toggles in the
// [notifications] config section suppress archive or error messages.
package notifications
