package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ayashare/internal/config"
	"ayashare/internal/logging"
	"ayashare/internal/staging"
)

func makeRunDir(t *testing.T, root, name string, payload int, modTime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if payload > 0 {
		if err := os.WriteFile(filepath.Join(dir, "narration.wav"), make([]byte, payload), 0o644); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	if err := os.Chtimes(dir, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", dir, err)
	}
	return dir
}

func TestRunDirLayout(t *testing.T) {
	if got := staging.WorkRunDir("/srv/work", "abc"); got != filepath.Join("/srv/work", "runs", "abc") {
		t.Fatalf("WorkRunDir = %q", got)
	}
	if got := staging.UploadRunDir("/srv/in", "abc"); got != filepath.Join("/srv/in", "abc") {
		t.Fatalf("UploadRunDir = %q", got)
	}

	cfg := config.Default()
	cfg.Paths.WorkDir = "/srv/work"
	cfg.Paths.UploadDir = "/srv/in"
	roots := staging.Roots(&cfg)
	if len(roots) != 2 || roots[0] != filepath.Join("/srv/work", "runs") || roots[1] != "/srv/in" {
		t.Fatalf("unexpected roots %v", roots)
	}
	if staging.Roots(nil) != nil {
		t.Fatal("expected no roots for nil config")
	}
}

func TestCleanStaleMissingOrEmptyRoot(t *testing.T) {
	for _, root := range []string{"", "  ", filepath.Join(t.TempDir(), "absent")} {
		result := staging.CleanStale(context.Background(), root, time.Now(), logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Fatalf("root %q: expected empty result, got %+v", root, result)
		}
	}
}

func TestCleanStaleRemovesOldRunDirs(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := makeRunDir(t, root, "old-run", 64, now.Add(-48*time.Hour))
	fresh := makeRunDir(t, root, "fresh-run", 32, now.Add(-time.Hour))
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(root, "stray.txt")
	past := now.Add(-72 * time.Hour)
	if err := os.Chtimes(stray, past, past); err != nil {
		t.Fatal(err)
	}

	result := staging.CleanStale(context.Background(), root, now.Add(-24*time.Hour), nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0].Path != old {
		t.Fatalf("expected only %s removed, got %+v", old, result.Removed)
	}
	if result.Reclaimed() != 64 {
		t.Fatalf("Reclaimed = %d, want 64", result.Reclaimed())
	}
	for _, keep := range []string{fresh, stray} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestCleanOrphanedKeepsKnownRuns(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	known := makeRunDir(t, root, "run-known", 10, now)
	orphan := makeRunDir(t, root, "run-orphan", 20, now)

	result := staging.CleanOrphaned(context.Background(), root, map[string]struct{}{"run-known": {}}, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0].Path != orphan {
		t.Fatalf("expected orphan removed, got %+v", result.Removed)
	}
	if _, err := os.Stat(known); err != nil {
		t.Fatalf("known run dir removed: %v", err)
	}
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	makeRunDir(t, root, "a", 0, time.Now().Add(-time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := staging.CleanStale(ctx, root, time.Now(), nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancel, got %+v", result.Removed)
	}
}

func TestResultMerge(t *testing.T) {
	var total staging.Result
	total.Merge(staging.Result{Removed: []staging.RemovedDir{{Path: "a", Size: 3}}})
	total.Merge(staging.Result{
		Removed: []staging.RemovedDir{{Path: "b", Size: 4}},
		Errors:  []staging.CleanupError{{Path: "c"}},
	})
	if len(total.Removed) != 2 || len(total.Errors) != 1 || total.Reclaimed() != 7 {
		t.Fatalf("unexpected merged result %+v", total)
	}
}
