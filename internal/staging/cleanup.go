// Package staging maintains the staging directory where the parser and
// normalizer keep per-item intermediate files. Completed or removed queue
// items leave directories behind; the daemon sweeps them on startup.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spectra/internal/logging"
)

// itemDirPrefix matches the per-item directories the parser creates.
const itemDirPrefix = "item-"

// CleanupResult pairs removed directories with per-directory errors.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging directories whose contents have not been touched
// for longer than maxAge, regardless of queue state.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	var result CleanupResult

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		removeDir(filepath.Join(stagingDir, entry.Name()), &result, logger)
	}
	return result
}

// CleanOrphaned removes item staging directories whose queue item no longer
// exists. Directories that do not follow the item naming scheme are left for
// CleanStale.
func CleanOrphaned(ctx context.Context, stagingDir string, activeItemIDs map[int64]struct{}, logger *slog.Logger) CleanupResult {
	var result CleanupResult

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		id, ok := parseItemDirName(entry.Name())
		if !ok {
			continue
		}
		if _, active := activeItemIDs[id]; active {
			continue
		}
		removeDir(filepath.Join(stagingDir, entry.Name()), &result, logger)
	}
	return result
}

func removeDir(path string, result *CleanupResult, logger *slog.Logger) {
	if err := os.RemoveAll(path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		if logger != nil {
			logging.WarnWithContext(logger, "failed to remove staging directory", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
		}
		return
	}
	result.Removed = append(result.Removed, path)
	if logger != nil {
		logger.Info("removed staging directory",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
}

func parseItemDirName(name string) (int64, bool) {
	if !strings.HasPrefix(name, itemDirPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(name[len(itemDirPrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
