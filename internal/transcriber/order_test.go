package transcriber

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListSegmentsNumericOrder(t *testing.T) {
	dir := t.TempDir()
	names := []string{"chunk_10.wav", "chunk_2.wav", "chunk_0.wav", "chunk_1.wav", "extra.wav", "chunks.json", "chunk_11.wav", "a.wav"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.wav"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	want := []string{"chunk_0.wav", "chunk_1.wav", "chunk_2.wav", "chunk_10.wav", "chunk_11.wav", "a.wav", "extra.wav"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Fatalf("position %d: got %s want %s", i, filepath.Base(got[i]), want[i])
		}
	}
}
