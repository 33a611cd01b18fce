package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTranscriptsKeepsNonASCIIAndIndentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), TranscriptsFile)
	records := []TranscriptRecord{
		{File: "chunk_0.wav", Text: "Sannu da zuwa <3", DurationMS: 1250.5},
		{File: "chunk_1.wav", Text: "", DurationMS: 800, Error: "timeout"},
		{File: "chunk_2.wav", Text: "ɗan uwa", DurationMS: 640},
	}
	if err := WriteTranscripts(path, records); err != nil {
		t.Fatalf("WriteTranscripts: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, "ɗan uwa") {
		t.Fatalf("expected non-ASCII text unescaped, got %s", text)
	}
	if !strings.Contains(text, "<3") {
		t.Fatalf("expected HTML characters unescaped, got %s", text)
	}
	if !strings.Contains(text, "\n  {\n    \"file\": \"chunk_0.wav\"") {
		t.Fatalf("expected two-space indentation, got %s", text)
	}
	if strings.Count(text, "\"error\"") != 1 {
		t.Fatalf("expected error key only on failed record, got %s", text)
	}

	loaded, err := ReadTranscripts(path)
	if err != nil {
		t.Fatalf("ReadTranscripts: %v", err)
	}
	if len(loaded) != 3 || !loaded[1].Failed() || loaded[0].Failed() {
		t.Fatalf("unexpected records %+v", loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the manifest on disk, found %d entries", len(entries))
	}
}

func TestWriteSegmentsEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SegmentsFile)
	if err := WriteSegments(path, nil); err != nil {
		t.Fatalf("WriteSegments: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", raw)
	}
	records, err := ReadSegments(path)
	if err != nil {
		t.Fatalf("ReadSegments: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestReadRejectsMalformedManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), TranscriptsFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadTranscripts(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ReadSegments(filepath.Join(t.TempDir(), "missing.json")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
