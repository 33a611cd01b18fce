package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ayashare/internal/logging"
	"ayashare/internal/logs"
	"ayashare/internal/media/audio"
	"ayashare/internal/pipeline"
	"ayashare/internal/server"
	"ayashare/internal/services"
	"ayashare/internal/testsupport"
)

type stubRunner struct {
	reqs     []pipeline.Request
	err      error
	recorder pipeline.Recorder
}

func (s *stubRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	s.reqs = append(s.reqs, req)
	now := time.Now().UTC()
	result := pipeline.Result{
		RunID:      req.RunID,
		Status:     pipeline.StatusSuccess,
		Stage:      pipeline.StageComposed,
		AudioPath:  req.AudioPath,
		VideoPath:  req.OutputVideoPath,
		StartedAt:  now,
		FinishedAt: now,
	}
	if s.err != nil {
		result.Status = pipeline.StatusFailed
		result.Stage = pipeline.StageSegmented
		result.VideoPath = ""
		result.Error = s.err.Error()
		result.ErrorKind = services.Kind(s.err)
	} else if err := os.MkdirAll(req.WorkDir, 0o755); err == nil {
		_ = os.WriteFile(req.OutputVideoPath, []byte("video"), 0o644)
	}
	if s.recorder != nil {
		_ = s.recorder.Record(ctx, result)
	}
	return result, s.err
}

func newTestServer(t *testing.T, runner *stubRunner, withHistory bool) (*server.Server, server.Options) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint("http://stt.local/transcribe"))
	opts := server.OptionsFromConfig(cfg)
	var hist server.History
	if withHistory {
		store := testsupport.MustOpenHistory(t, cfg)
		runner.recorder = store
		hist = store
	}
	return server.New(opts, runner, hist, logging.NewNop()), opts
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile("audio", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/runs", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(srv *server.Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{}, false)
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[map[string]string](t, w); got["status"] != "ok" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestCreateRunUsesPrivateWorkDir(t *testing.T) {
	runner := &stubRunner{}
	srv, opts := newTestServer(t, runner, false)

	w := serve(srv, uploadRequest(t, "talk.WAV", []byte("RIFFdata"), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decode[pipeline.Result](t, w)
	if result.Status != pipeline.StatusSuccess || result.RunID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(runner.reqs) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.reqs))
	}
	req := runner.reqs[0]
	if req.RunID != result.RunID {
		t.Fatalf("run id mismatch: %q vs %q", req.RunID, result.RunID)
	}
	if req.WorkDir != filepath.Join(opts.WorkDir, "runs", req.RunID) {
		t.Fatalf("unexpected work dir: %q", req.WorkDir)
	}
	if req.OutputVideoPath != filepath.Join(req.WorkDir, "final_video.mp4") {
		t.Fatalf("unexpected output path: %q", req.OutputVideoPath)
	}
	if req.AudioFormat != "wav" {
		t.Fatalf("expected format from extension, got %q", req.AudioFormat)
	}
	if req.TranscriptionEndpoint != "http://stt.local/transcribe" {
		t.Fatalf("expected configured endpoint, got %q", req.TranscriptionEndpoint)
	}
	if req.BackgroundImagePath != opts.Template.BackgroundImagePath || req.FontPath != opts.Template.FontPath {
		t.Fatalf("asset paths not taken from config: %+v", req)
	}
	if req.AudioPath != filepath.Join(opts.UploadDir, req.RunID, "talk.wav") {
		t.Fatalf("unexpected upload path: %q", req.AudioPath)
	}
	data, err := os.ReadFile(req.AudioPath)
	if err != nil || string(data) != "RIFFdata" {
		t.Fatalf("upload not stored: %q %v", data, err)
	}
}

func TestCreateRunAIFFUploadDecodesWithAIFFDemuxer(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner, false)

	w := serve(srv, uploadRequest(t, "interview.aif", []byte("FORM"), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(runner.reqs) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.reqs))
	}
	if got := audio.Demuxer(runner.reqs[0].AudioFormat); got != "aiff" {
		t.Fatalf("expected aiff demuxer for .aif upload, got %q (format %q)", got, runner.reqs[0].AudioFormat)
	}
}

func TestCreateRunEndpointOverride(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner, false)

	w := serve(srv, uploadRequest(t, "talk.mp3", []byte("ID3"), map[string]string{"endpoint": "http://other/stt"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := runner.reqs[0].TranscriptionEndpoint; got != "http://other/stt" {
		t.Fatalf("expected override endpoint, got %q", got)
	}
}

func TestCreateRunFailureReturnsResult(t *testing.T) {
	runner := &stubRunner{err: services.Wrap(services.ErrEmptyInput, "composer", "read manifest", "no segments", nil)}
	srv, _ := newTestServer(t, runner, false)

	w := serve(srv, uploadRequest(t, "talk.wav", []byte("x"), nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	result := decode[pipeline.Result](t, w)
	if result.Status != pipeline.StatusFailed || result.ErrorKind != services.KindEmptyInput || result.Error == "" {
		t.Fatalf("unexpected failed result: %+v", result)
	}
}

func TestCreateRunRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"missing file", func(t *testing.T) *http.Request { return uploadRequest(t, "", nil, map[string]string{"x": "y"}) }},
		{"unsupported extension", func(t *testing.T) *http.Request { return uploadRequest(t, "notes.txt", []byte("x"), nil) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubRunner{}
			srv, _ := newTestServer(t, runner, false)
			w := serve(srv, tc.req(t))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if len(runner.reqs) != 0 {
				t.Fatal("runner must not be called")
			}
		})
	}
}

func TestCreateRunRequiresEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &stubRunner{}
	srv := server.New(server.OptionsFromConfig(cfg), runner, nil, logging.NewNop())

	w := serve(srv, uploadRequest(t, "talk.wav", []byte("x"), nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(runner.reqs) != 0 {
		t.Fatal("runner must not be called")
	}
}

func TestCreateRunUploadLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint("http://stt.local"))
	opts := server.OptionsFromConfig(cfg)
	opts.MaxUploadBytes = 1024
	runner := &stubRunner{}
	srv := server.New(opts, runner, nil, logging.NewNop())

	w := serve(srv, uploadRequest(t, "talk.wav", bytes.Repeat([]byte("a"), 4096), nil))
	if w.Code == http.StatusOK || len(runner.reqs) != 0 {
		t.Fatalf("expected oversized upload to be rejected, got %d", w.Code)
	}
}

func TestRunHistoryEndpoints(t *testing.T) {
	runner := &stubRunner{}
	srv, _ := newTestServer(t, runner, true)

	for range 3 {
		if w := serve(srv, uploadRequest(t, "talk.wav", []byte("x"), nil)); w.Code != http.StatusOK {
			t.Fatalf("create run: %d", w.Code)
		}
	}

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	list := decode[server.RunListResponse](t, w)
	if len(list.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(list.Runs))
	}

	id := runner.reqs[0].RunID
	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[pipeline.Result](t, w); got.RunID != id || got.Status != pipeline.StatusSuccess {
		t.Fatalf("unexpected run: %+v", got)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/video", nil))
	if w.Code != http.StatusOK || w.Body.String() != "video" {
		t.Fatalf("expected video download, got %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, `filename="talk.mp4"`) {
		t.Fatalf("unexpected attachment name: %q", got)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListRunsValidatesLimit(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{}, true)
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListRunsWithoutHistory(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{}, false)
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if list := decode[server.RunListResponse](t, w); list.Runs == nil || len(list.Runs) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestStartServesOverTCP(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
}

func TestStartRejectsEmptyBind(t *testing.T) {
	srv := server.New(server.Options{}, &stubRunner{}, nil, logging.NewNop())
	if err := srv.Start(context.Background()); err == nil {
		t.Fatal("expected error for empty bind")
	}
}

func TestLogsEndpointPagesNewestFile(t *testing.T) {
	srv, opts := newTestServer(t, &stubRunner{}, false)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 before any log exists, got %d", w.Code)
	}
	if chunk := decode[logs.Chunk](t, w); len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk, got %+v", chunk)
	}

	if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	older := logging.LogFilePath(opts.LogDir, time.Now().AddDate(0, 0, -1))
	newest := logging.LogFilePath(opts.LogDir, time.Now())
	if err := os.WriteFile(older, []byte("yesterday\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newest, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/logs?limit=2", nil))
	chunk := decode[logs.Chunk](t, w)
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "two" || chunk.Lines[1] != "three" {
		t.Fatalf("unexpected tail %+v", chunk)
	}

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/logs?offset=4", nil))
	chunk = decode[logs.Chunk](t, w)
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "two" || chunk.Offset != 14 {
		t.Fatalf("unexpected page %+v", chunk)
	}

	for _, query := range []string{"?offset=-3", "?offset=x", "?limit=0"} {
		if w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/logs"+query, nil)); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, w.Code)
		}
	}
}
