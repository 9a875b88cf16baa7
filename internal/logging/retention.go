package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupOldLogs removes rotated log files older than retentionDays from the
// log directory. The active log file is never removed. Returns the number of
// files deleted.
func CleanupOldLogs(logDir string, retentionDays int, logger *slog.Logger) int {
	if logger == nil {
		logger = NewNop()
	}
	if strings.TrimSpace(logDir) == "" || retentionDays <= 0 {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	entries, err := os.ReadDir(logDir)
	if err != nil {
		logger.Warn("read log directory for cleanup", Args(Error(err), String("dir", logDir))...)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == LogFileName {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".log") && !strings.HasSuffix(entry.Name(), ".log.gz") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(logDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("remove expired log file", Args(Error(err), String("path", path))...)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("expired log files removed", Args(Int("count", removed), String("dir", logDir))...)
	}
	return removed
}
