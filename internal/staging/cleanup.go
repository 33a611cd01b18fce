package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ayashare/internal/fileutil"
	"ayashare/internal/logging"
)

// Result reports what a sweep removed and what it could not.
type Result struct {
	Removed []RemovedDir
	Errors  []CleanupError
}

// RemovedDir is a deleted run directory and the bytes it held.
type RemovedDir struct {
	Path string
	Size int64
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Reclaimed sums the sizes of the removed directories.
func (r Result) Reclaimed() int64 {
	var total int64
	for _, dir := range r.Removed {
		total += dir.Size
	}
	return total
}

// Merge appends other to r.
func (r *Result) Merge(other Result) {
	r.Removed = append(r.Removed, other.Removed...)
	r.Errors = append(r.Errors, other.Errors...)
}

// CleanStale removes run directories under root last modified before cutoff.
func CleanStale(ctx context.Context, root string, cutoff time.Time, logger *slog.Logger) Result {
	return sweep(ctx, root, "stale", logger, func(_ string, info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes run directories under root whose name is not a known
// run id.
func CleanOrphaned(ctx context.Context, root string, known map[string]struct{}, logger *slog.Logger) Result {
	return sweep(ctx, root, "orphaned", logger, func(name string, _ os.FileInfo) bool {
		_, ok := known[name]
		return !ok
	})
}

func sweep(ctx context.Context, root, reason string, logger *slog.Logger, remove func(string, os.FileInfo) bool) Result {
	var result Result
	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !remove(entry.Name(), info) {
			continue
		}

		size, _ := fileutil.DirSize(path)
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logger.Warn("failed to remove run directory",
				logging.String("path", path),
				logging.String("reason", reason),
				logging.Error(err),
				logging.String(logging.FieldEventType, "run_dir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir and upload_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, RemovedDir{Path: path, Size: size})
		logger.Info("removed run directory",
			logging.String("path", path),
			logging.String("reason", reason),
			logging.Int64("bytes", size),
			logging.String(logging.FieldEventType, "run_dir_cleanup"),
		)
	}
	return result
}
