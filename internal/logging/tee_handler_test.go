package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler().(NoopHandler); !ok {
		t.Fatal("expected noop handler for no sinks")
	}
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected noop handler when every sink is nil")
	}
	single := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := newTeeHandler(nil, single); got != single {
		t.Fatalf("expected the lone sink back, got %T", got)
	}
}

func TestTeeHandlerRoutesByLevel(t *testing.T) {
	var console, file bytes.Buffer
	handler := newTeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through the file sink")
	}
	logger := slog.New(handler)
	logger.Debug("segment probed")
	logger.Warn("clip skipped")

	if strings.Contains(console.String(), "segment probed") {
		t.Fatalf("console sink should drop debug, got %q", console.String())
	}
	if !strings.Contains(console.String(), "clip skipped") {
		t.Fatalf("console sink missing warning: %q", console.String())
	}
	for _, msg := range []string{"segment probed", "clip skipped"} {
		if !strings.Contains(file.String(), msg) {
			t.Fatalf("file sink missing %q: %q", msg, file.String())
		}
	}
}

func TestTeeHandlerDisabledWhenNoSinkAccepts(t *testing.T) {
	handler := newTeeHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled")
	}
}

func TestTeeHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	handler := newTeeHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String(FieldRunID, "r1")}).WithGroup("clip"))
	logger.Info("rendered", slog.Int("index", 3))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		out := buf.String()
		if !strings.Contains(out, `"run_id":"r1"`) || !strings.Contains(out, `"clip":{"index":3}`) {
			t.Fatalf("unexpected output %q", out)
		}
	}
}
