package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DaemonLogPattern matches the per-run daemon log files under log_dir.
const DaemonLogPattern = "daemon-*.log"

// DaemonLogPath returns a fresh per-run log file path for the daemon.
func DaemonLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, "daemon-"+now.UTC().Format("20060102T150405Z")+".log")
}

// CleanupOldLogs removes files in dir matching pattern whose modification
// time is older than retentionDays. A retentionDays value of 0 disables
// pruning. keep is never removed. It returns the number of files removed.
func CleanupOldLogs(logger *slog.Logger, dir, pattern string, retentionDays int, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keepAbs, _ := filepath.Abs(keep)

	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && abs == keepAbs {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Info("log pruned", String(FieldPath, path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
