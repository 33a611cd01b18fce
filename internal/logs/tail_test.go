package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ayashare/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayashare-20260301.log")
	writeLog(t, path, "segmenting\ntranscribing\ncomposing\n")

	chunk, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "transcribing" || chunk.Lines[1] != "composing" {
		t.Fatalf("unexpected lines %#v", chunk.Lines)
	}
	if chunk.Offset != int64(len("segmenting\ntranscribing\ncomposing\n")) {
		t.Fatalf("expected offset at end of file, got %d", chunk.Offset)
	}

	appendLog(t, path, "done\npartial")
	next, err := logs.Tail(context.Background(), path, logs.Options{Offset: chunk.Offset})
	if err != nil {
		t.Fatalf("Tail from offset: %v", err)
	}
	if len(next.Lines) != 1 || next.Lines[0] != "done" {
		t.Fatalf("expected only complete lines, got %#v", next.Lines)
	}
	if next.Offset != chunk.Offset+int64(len("done\n")) {
		t.Fatalf("partial line must not advance offset, got %d", next.Offset)
	}
}

func TestTailZeroLimitOnlyReportsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayashare.log")
	writeLog(t, path, "a\nb\n")
	chunk, err := logs.Tail(context.Background(), path, logs.Options{Offset: -1})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 4 {
		t.Fatalf("unexpected chunk %+v", chunk)
	}
}

func TestTailMissingFile(t *testing.T) {
	chunk, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.Options{Offset: 10})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if chunk.Offset != 0 || chunk.Lines == nil || len(chunk.Lines) != 0 {
		t.Fatalf("unexpected chunk %+v", chunk)
	}
}

func TestTailOffsetBeyondEndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayashare.log")
	writeLog(t, path, "one\n")
	chunk, err := logs.Tail(context.Background(), path, logs.Options{Offset: 999})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if chunk.Offset != 4 || len(chunk.Lines) != 0 {
		t.Fatalf("unexpected chunk %+v", chunk)
	}
}

func TestTailFollowWaitsForNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayashare.log")
	writeLog(t, path, "start\n")

	done := make(chan logs.Chunk, 1)
	go func() {
		chunk, err := logs.Tail(context.Background(), path, logs.Options{Offset: 6, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow: %v", err)
		}
		done <- chunk
	}()

	time.Sleep(300 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case chunk := <-done:
		if len(chunk.Lines) != 1 || chunk.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines %#v", chunk.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
}

func TestTailFollowHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ayashare.log")
	writeLog(t, path, "start\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	chunk, err := logs.Tail(ctx, path, logs.Options{Offset: 6, Follow: true, Wait: time.Minute})
	if err == nil {
		t.Fatal("expected context error")
	}
	if chunk.Offset != 6 {
		t.Fatalf("expected offset preserved, got %d", chunk.Offset)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if got, err := logs.Latest(dir, "ayashare-*.log"); err != nil || got != "" {
		t.Fatalf("expected no match, got %q %v", got, err)
	}
	for _, name := range []string{"ayashare-20260301.log", "ayashare-20261019.log", "ayashare-20260915.log", "other.log"} {
		writeLog(t, filepath.Join(dir, name), "")
	}
	got, err := logs.Latest(dir, "ayashare-*.log")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if filepath.Base(got) != "ayashare-20261019.log" {
		t.Fatalf("unexpected latest %q", got)
	}
}
