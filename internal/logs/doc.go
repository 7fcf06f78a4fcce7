// Package logs reads the daemon's per-run JSON log files for the CLI.
//
// It locates the newest log under paths.log_dir, returns the last N records
// with bounded memory, follows the file as the daemon appends to it, and
// filters records by queue item.
package logs
