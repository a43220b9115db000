package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// sessionLogPattern matches the per-run files FilePath creates.
const sessionLogPattern = "storybuilder-*.log"

// PruneSessionLogs deletes per-run log files in dir whose modification time
// is older than retentionDays. The file at keep is never removed. It returns
// the number of files deleted; retentionDays <= 0 disables pruning.
func PruneSessionLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	matches, err := filepath.Glob(filepath.Join(dir, sessionLogPattern))
	if err != nil {
		return 0
	}
	keepAbs, _ := filepath.Abs(keep)
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

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
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
	}
	if removed > 0 {
		logger.Info("old session logs pruned", Int("count", removed), Int("retention_days", retentionDays))
	}
	return removed
}
