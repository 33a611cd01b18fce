package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ayashare/internal/media/audio"
)

// Region marks a span of synthetic speech in milliseconds.
type Region struct {
	StartMS int
	EndMS   int
}

// SpeechPCM builds mono 16-bit audio of totalMS that is digital silence except
// for a 440 Hz tone inside each region.
func SpeechPCM(sampleRate, totalMS int, regions ...Region) audio.PCM {
	frames := sampleRate * totalMS / 1000
	samples := make([]int, frames)
	for _, r := range regions {
		start := sampleRate * r.StartMS / 1000
		end := min(sampleRate*r.EndMS/1000, frames)
		for i := start; i < end; i++ {
			samples[i] = int(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		}
	}
	return audio.PCM{SampleRate: sampleRate, Channels: 1, BitDepth: 16, Samples: samples}
}

// WriteSpeechWAV writes SpeechPCM to path as a WAV file.
func WriteSpeechWAV(t testing.TB, path string, sampleRate, totalMS int, regions ...Region) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := audio.WriteWAV(path, SpeechPCM(sampleRate, totalMS, regions...)); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
