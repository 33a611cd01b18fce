package staging

import (
	"path/filepath"
	"strings"

	"ayashare/internal/config"
)

// RunsSubdir holds the per-run work directories below the work dir.
const RunsSubdir = "runs"

// WorkRunDir returns the private work directory for runID.
func WorkRunDir(workDir, runID string) string {
	return filepath.Join(workDir, RunsSubdir, runID)
}

// UploadRunDir returns the directory holding the upload for runID.
func UploadRunDir(uploadDir, runID string) string {
	return filepath.Join(uploadDir, runID)
}

// Roots lists the directories whose children are per-run directories.
func Roots(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	var roots []string
	if dir := strings.TrimSpace(cfg.Paths.WorkDir); dir != "" {
		roots = append(roots, filepath.Join(dir, RunsSubdir))
	}
	if dir := strings.TrimSpace(cfg.Paths.UploadDir); dir != "" {
		roots = append(roots, dir)
	}
	return roots
}
