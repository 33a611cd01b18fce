package logging

import "testing"

func TestNewProgressSamplerDefaultsBucket(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if got := NewProgressSampler(size).bucketSize; got != 5 {
			t.Fatalf("bucket size %v: got %v, want 5", size, got)
		}
	}
	if got := NewProgressSampler(25).bucketSize; got != 25 {
		t.Fatalf("custom bucket size: got %v", got)
	}
}

func TestProgressSamplerNilLogsEverything(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(10, "render") {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{10, false},
		{25, true},
		{30, false},
		{74.9, true},
		{75, true},
		{100, true},
		{140, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "render"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerPhaseChangeResetsBuckets(t *testing.T) {
	s := NewProgressSampler(50)
	if !s.ShouldLog(60, "transcribe") {
		t.Fatal("first update should log")
	}
	if s.ShouldLog(70, " transcribe ") {
		t.Fatal("same phase and bucket should not log")
	}
	if !s.ShouldLog(10, "render") {
		t.Fatal("phase change should log")
	}
	if s.ShouldLog(20, "render") {
		t.Fatal("same bucket after phase change should not log")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "concat") {
		t.Fatal("new phase with unknown percent should log")
	}
	if s.ShouldLog(-1, "concat") {
		t.Fatal("unknown percent in the same phase should not log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "render")
	s.Reset()
	if s.phase != "" || s.bucket != -1 {
		t.Fatalf("reset left phase=%q bucket=%d", s.phase, s.bucket)
	}
	if !s.ShouldLog(50, "render") {
		t.Fatal("expected log after reset")
	}
}
