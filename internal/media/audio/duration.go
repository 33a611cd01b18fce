package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"

	"ayashare/internal/media/ffprobe"
)

// Prober measures media durations.
type Prober struct {
	FFprobe string
	Runner  ffprobe.Runner
}

// Duration returns the playing time of path. WAV and MP3 files are measured
// from their headers; anything else is asked of ffprobe.
func (p Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return WAVDuration(path)
	case ".mp3":
		return MP3Duration(path)
	default:
		return p.probe(ctx, path)
	}
}

func (p Prober) probe(ctx context.Context, path string) (time.Duration, error) {
	var (
		result ffprobe.Result
		err    error
	)
	if p.Runner != nil {
		result, err = ffprobe.InspectWith(ctx, p.Runner, p.FFprobe, path)
	} else {
		result, err = ffprobe.Inspect(ctx, p.FFprobe, path)
	}
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", path)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// WAVDuration reads the duration from a WAV header.
func WAVDuration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("%s: not a valid wav file", path)
	}
	d, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav duration %s: %w", path, err)
	}
	return d, nil
}

// MP3Duration sums the frame durations of an MP3 file.
func MP3Duration(path string) (time.Duration, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	decoder := mp3.NewDecoder(file)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("mp3 duration %s: %w", path, err)
		}
		total += frame.Duration()
	}
	if total == 0 {
		return 0, fmt.Errorf("mp3 duration %s: no frames", path)
	}
	return total, nil
}

// Milliseconds converts d to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
