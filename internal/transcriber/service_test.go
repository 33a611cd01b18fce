package transcriber_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ayashare/internal/logging"
	"ayashare/internal/manifest"
	"ayashare/internal/services"
	"ayashare/internal/testsupport"
	"ayashare/internal/transcriber"
)

func writeSegments(t *testing.T, dir string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		testsupport.WriteSpeechWAV(t, filepath.Join(dir, fmt.Sprintf("chunk_%d.wav", i)), 8000, 100+10*i,
			testsupport.Region{StartMS: 0, EndMS: 50})
	}
}

func newHTTPService(timeout time.Duration) *transcriber.Service {
	return transcriber.NewService(transcriber.NewHTTPUploader(nil), nil, timeout, logging.NewNop())
}

// echoServer answers with the uploaded file name so ordering is observable.
func echoServer(t *testing.T, handle func(w http.ResponseWriter, name string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		_, _ = io.Copy(io.Discard, file)
		file.Close()
		handle(w, header.Filename)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribeOrdersNumericallyAndKeepsLength(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 12)
	srv := echoServer(t, func(w http.ResponseWriter, name string) {
		if name == "chunk_7.wav" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"text":"said %s"}`, strings.TrimSuffix(name, ".wav"))
	})
	out := filepath.Join(dir, manifest.TranscriptsFile)

	records, err := newHTTPService(time.Second).Transcribe(context.Background(), srv.URL, dir, out)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(records))
	}
	for i, rec := range records {
		if filepath.Base(rec.File) != fmt.Sprintf("chunk_%d.wav", i) {
			t.Fatalf("record %d is %s", i, rec.File)
		}
		if want := float64(100 + 10*i); rec.DurationMS < want-1 || rec.DurationMS > want+1 {
			t.Fatalf("record %d duration %v want %v", i, rec.DurationMS, want)
		}
		if i == 7 {
			continue
		}
		if rec.Text != fmt.Sprintf("said chunk_%d", i) || rec.Error != "" {
			t.Fatalf("record %d: %+v", i, rec)
		}
	}
	failed := records[7]
	if failed.Text != "" || !strings.HasPrefix(failed.Error, "500 Server Error: Internal Server Error for url: ") {
		t.Fatalf("unexpected failed record: %+v", failed)
	}

	onDisk, err := manifest.ReadTranscripts(out)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(onDisk) != 12 {
		t.Fatalf("expected manifest with 12 records, got %d", len(onDisk))
	}
}

func TestTranscribeTimeoutIsRecordedAndBatchContinues(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 3)
	srv := echoServer(t, func(w http.ResponseWriter, name string) {
		if name == "chunk_1.wav" {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, `{"text":"ok"}`)
	})
	out := filepath.Join(dir, manifest.TranscriptsFile)

	records, err := newHTTPService(100*time.Millisecond).Transcribe(context.Background(), srv.URL, dir, out)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[1].Text != "" || records[1].Error != "timeout" {
		t.Fatalf("expected timeout record, got %+v", records[1])
	}
	if records[1].DurationMS <= 0 {
		t.Fatalf("expected timed-out record to carry measured duration, got %v", records[1].DurationMS)
	}
	if records[0].Text != "ok" || records[2].Text != "ok" {
		t.Fatalf("expected neighbours to succeed: %+v", records)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected manifest on disk: %v", err)
	}
}

func TestTranscribeDegradesUnexpectedBodies(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 3)
	srv := echoServer(t, func(w http.ResponseWriter, name string) {
		switch name {
		case "chunk_0.wav":
			fmt.Fprint(w, "plain text body")
		case "chunk_1.wav":
			fmt.Fprint(w, `{"transcript":"wrong field"}`)
		default:
			fmt.Fprint(w, `{"text":"Barka da safiya"}`)
		}
	})

	records, err := newHTTPService(time.Second).Transcribe(context.Background(), srv.URL, dir, filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if records[0].Text != "" || records[0].Error != "" {
		t.Fatalf("non-JSON body should yield empty text without error: %+v", records[0])
	}
	if records[1].Text != "" || records[1].Error != "" {
		t.Fatalf("missing text field should yield empty text without error: %+v", records[1])
	}
	if records[2].Text != "Barka da safiya" {
		t.Fatalf("unexpected text %q", records[2].Text)
	}
}

func TestTranscribeConnectionFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 2)
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	records, err := newHTTPService(time.Second).Transcribe(context.Background(), endpoint, dir, filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	for _, rec := range records {
		if rec.Error == "" || rec.Error == "timeout" || rec.Text != "" {
			t.Fatalf("expected connection failure recorded, got %+v", rec)
		}
	}
}

func TestTranscribeMissingAndEmptyDirectories(t *testing.T) {
	svc := newHTTPService(time.Second)
	_, err := svc.Transcribe(context.Background(), "http://127.0.0.1:1", filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty := t.TempDir()
	out := filepath.Join(empty, "out.json")
	records, err := svc.Transcribe(context.Background(), "http://127.0.0.1:1", empty, out)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no manifest for empty directory, stat err=%v", err)
	}
}

type scriptedUploader struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (u *scriptedUploader) Upload(_ context.Context, _ string, path string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	name := filepath.Base(path)
	u.calls = append(u.calls, name)
	if err, ok := u.fail[name]; ok {
		return "", err
	}
	return "text", nil
}

func TestTranscribeAbortsOnUnexpectedFailure(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 3)
	uploader := &scriptedUploader{fail: map[string]error{"chunk_1.wav": errors.New("disk on fire")}}
	out := filepath.Join(dir, "out.json")

	svc := transcriber.NewService(uploader, nil, time.Second, logging.NewNop())
	_, err := svc.Transcribe(context.Background(), "http://unused", dir, out)
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected abort with underlying error, got %v", err)
	}
	if services.Kind(err) != services.KindUnexpected {
		t.Fatalf("expected unexpected kind, got %s", services.Kind(err))
	}
	if len(uploader.calls) != 2 {
		t.Fatalf("expected batch to stop at the failing segment, calls=%v", uploader.calls)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no manifest after abort, stat err=%v", err)
	}
}

type brokenProber struct{}

func (brokenProber) Duration(context.Context, string) (time.Duration, error) {
	return 0, errors.New("unreadable segment")
}

func TestTranscribeAbortsWhenDurationCannotBeMeasured(t *testing.T) {
	dir := t.TempDir()
	writeSegments(t, dir, 1)
	uploader := &scriptedUploader{fail: map[string]error{
		"chunk_0.wav": &transcriber.RequestError{Timeout: true},
	}}
	svc := transcriber.NewService(uploader, brokenProber{}, time.Second, logging.NewNop())
	if _, err := svc.Transcribe(context.Background(), "http://unused", dir, filepath.Join(dir, "out.json")); err == nil {
		t.Fatal("expected abort when duration probe fails")
	}
}

func TestRequestErrorClassification(t *testing.T) {
	timeout := &transcriber.RequestError{Timeout: true, Err: context.DeadlineExceeded}
	if timeout.Error() != "timeout" || services.Kind(timeout) != services.KindTranscriptionTimeout {
		t.Fatalf("unexpected timeout classification: %q %s", timeout.Error(), services.Kind(timeout))
	}
	failure := &transcriber.RequestError{Detail: "connection refused"}
	if failure.Error() != "connection refused" || services.Kind(failure) != services.KindTranscriptionRequest {
		t.Fatalf("unexpected request classification: %q %s", failure.Error(), services.Kind(failure))
	}
}
