package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// StreamRunner runs a command and returns its stdout.
type StreamRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Decoder turns audio files into PCM. WAV input is parsed directly; any other
// format is decoded through ffmpeg at the configured rate and channel count.
type Decoder struct {
	FFmpeg     string
	SampleRate int
	Channels   int

	run StreamRunner
}

// NewDecoder returns a decoder that shells out to the given ffmpeg binary.
func NewDecoder(ffmpeg string, sampleRate, channels int) *Decoder {
	return &Decoder{FFmpeg: ffmpeg, SampleRate: sampleRate, Channels: channels}
}

// WithRunner overrides how ffmpeg is executed.
func (d *Decoder) WithRunner(run StreamRunner) *Decoder {
	d.run = run
	return d
}

// Decode loads path as PCM. format is the container hint ("wav", "mp3", ...).
func (d *Decoder) Decode(ctx context.Context, path, format string) (PCM, error) {
	format = Demuxer(format)
	if format == "wav" {
		return ReadWAV(path)
	}
	return d.decodeFFmpeg(ctx, path, format)
}

func (d *Decoder) decodeFFmpeg(ctx context.Context, path, format string) (PCM, error) {
	rate := d.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	channels := d.Channels
	if channels <= 0 {
		channels = 1
	}
	binaryName := strings.TrimSpace(d.FFmpeg)
	if binaryName == "" {
		binaryName = "ffmpeg"
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if format != "" {
		args = append(args, "-f", format)
	}
	args = append(args,
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-",
	)

	run := d.run
	if run == nil {
		run = runStdout
	}
	raw, err := run(ctx, binaryName, args...)
	if err != nil {
		return PCM{}, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	samples, err := parseS16LE(raw)
	if err != nil {
		return PCM{}, err
	}
	return PCM{SampleRate: rate, Channels: channels, BitDepth: 16, Samples: samples}, nil
}

func parseS16LE(raw []byte) ([]int, error) {
	if len(raw)%2 != 0 {
		return nil, errors.New("ffmpeg decode: truncated s16le stream")
	}
	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return samples, nil
}

func runStdout(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
