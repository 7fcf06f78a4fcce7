// Package logging builds the slog loggers used across the archivist.
//
// Console output is either a compact one-line "pretty" format or JSON; when a
// log directory is configured every record is also appended to a JSON log
// file. Context helpers stamp queue item IDs, stages, and correlation IDs onto
// log lines so archive attempts can be followed end to end.
package logging
