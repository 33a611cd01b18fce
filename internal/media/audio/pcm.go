package audio

import (
	"math"
	"time"
)

// PCM is an interleaved buffer of signed integer samples.
type PCM struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int
}

// Frames returns the number of sample frames (one sample per channel).
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// DurationMS returns the buffer length in whole milliseconds.
func (p PCM) DurationMS() int {
	if p.SampleRate <= 0 {
		return 0
	}
	return int(int64(p.Frames()) * 1000 / int64(p.SampleRate))
}

// Duration returns the buffer length.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(p.Frames()) * int64(time.Second) / int64(p.SampleRate))
}

// FrameAt converts a millisecond offset into a frame index clamped to the buffer.
func (p PCM) FrameAt(ms int) int {
	if ms <= 0 || p.SampleRate <= 0 {
		return 0
	}
	frame := int(int64(ms) * int64(p.SampleRate) / 1000)
	if frames := p.Frames(); frame > frames {
		return frames
	}
	return frame
}

// Slice returns the samples between startMS (inclusive) and endMS (exclusive).
// The returned buffer shares storage with p.
func (p PCM) Slice(startMS, endMS int) PCM {
	start, end := p.FrameAt(startMS), p.FrameAt(endMS)
	if end < start {
		end = start
	}
	out := p
	out.Samples = p.Samples[start*p.Channels : end*p.Channels]
	return out
}

// MaxAmplitude is the largest magnitude representable at the buffer's bit depth.
func (p PCM) MaxAmplitude() float64 {
	depth := p.BitDepth
	if depth <= 0 {
		depth = 16
	}
	return float64(int64(1) << (depth - 1))
}

// RMS returns the root mean square of every sample in the buffer.
func (p PCM) RMS() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(p.Samples)))
}

// DBFS returns the average loudness relative to full scale. A silent buffer
// reports negative infinity.
func (p PCM) DBFS() float64 {
	return RatioToDB(p.RMS(), p.MaxAmplitude())
}

// RatioToDB converts an amplitude ratio to decibels.
func RatioToDB(value, reference float64) float64 {
	if value <= 0 || reference <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(value/reference)
}

// DBToAmplitude converts a dBFS value into an absolute amplitude at the given full scale.
func DBToAmplitude(db, fullScale float64) float64 {
	return math.Pow(10, db/20) * fullScale
}

// EnergyIndex holds prefix sums of squared samples per frame so the RMS of any
// frame window can be read in constant time.
type EnergyIndex struct {
	channels int
	prefix   []float64
}

// NewEnergyIndex builds the prefix sums for p.
func NewEnergyIndex(p PCM) EnergyIndex {
	frames := p.Frames()
	prefix := make([]float64, frames+1)
	for f := 0; f < frames; f++ {
		var sq float64
		for c := 0; c < p.Channels; c++ {
			v := float64(p.Samples[f*p.Channels+c])
			sq += v * v
		}
		prefix[f+1] = prefix[f] + sq
	}
	return EnergyIndex{channels: p.Channels, prefix: prefix}
}

// RMS returns the RMS of frames [start, end).
func (e EnergyIndex) RMS(start, end int) float64 {
	if end > len(e.prefix)-1 {
		end = len(e.prefix) - 1
	}
	if start < 0 {
		start = 0
	}
	if end <= start || e.channels <= 0 {
		return 0
	}
	n := float64((end - start) * e.channels)
	mean := (e.prefix[end] - e.prefix[start]) / n
	if mean < 0 {
		return 0
	}
	return math.Sqrt(mean)
}
