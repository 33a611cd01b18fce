package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ayashare/internal/fileutil"
)

const wavFormatPCM = 1

// ReadWAV decodes a PCM WAV file fully into memory.
func ReadWAV(path string) (PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return PCM{}, err
	}
	defer file.Close()
	return DecodeWAV(file)
}

// DecodeWAV decodes PCM WAV data from r.
func DecodeWAV(r io.ReadSeeker) (PCM, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return PCM{}, errors.New("not a valid wav file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	pcm := PCM{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Samples:    buf.Data,
	}
	if pcm.Channels <= 0 || pcm.SampleRate <= 0 {
		return PCM{}, errors.New("decode wav: missing format header")
	}
	switch pcm.BitDepth {
	case 8:
		widenUnsigned8(pcm.Samples)
		pcm.BitDepth = 16
	case 16, 24, 32:
	default:
		return PCM{}, fmt.Errorf("decode wav: unsupported bit depth %d", pcm.BitDepth)
	}
	return pcm, nil
}

// widenUnsigned8 turns unsigned 8-bit samples (silence at 128) into signed
// 16-bit samples in place.
func widenUnsigned8(samples []int) {
	for i, v := range samples {
		samples[i] = (v - 128) << 8
	}
}

// WriteWAV encodes p as a PCM WAV file. The file is written next to path and
// renamed into place once the header is finalized.
func WriteWAV(path string, p PCM) error {
	if p.Channels <= 0 || p.SampleRate <= 0 {
		return errors.New("write wav: invalid format")
	}
	depth := p.BitDepth
	if depth <= 0 {
		depth = 16
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           p.Samples,
		SourceBitDepth: depth,
	}
	return fileutil.WriteAtomic(path, func(f *os.File) error {
		encoder := wav.NewEncoder(f, p.SampleRate, depth, p.Channels, wavFormatPCM)
		if err := encoder.Write(buf); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("finalize wav: %w", err)
		}
		return nil
	})
}
