package segmenter

import (
	"ayashare/internal/media/audio"
)

// Range is a half-open millisecond interval of the source audio.
type Range struct {
	StartMS int
	EndMS   int
}

// Len returns the range length in milliseconds.
func (r Range) Len() int {
	return r.EndMS - r.StartMS
}

// seekStepMS is the stride of the silence window.
const seekStepMS = 1

// DetectSilence returns the silent ranges of pcm. A window of minSilenceLen
// milliseconds is silent when its RMS does not exceed the threshold; windows
// that touch or overlap are merged into a single range.
func DetectSilence(pcm audio.PCM, minSilenceLen int, threshDBFS float64) []Range {
	total := pcm.DurationMS()
	if minSilenceLen <= 0 || total < minSilenceLen {
		return nil
	}
	threshold := audio.DBToAmplitude(threshDBFS, pcm.MaxAmplitude())
	energy := audio.NewEnergyIndex(pcm)

	var (
		ranges     []Range
		open       bool
		rangeStart int
		prev       int
	)
	last := total - minSilenceLen
	for start := 0; start <= last; start += seekStepMS {
		rms := energy.RMS(pcm.FrameAt(start), pcm.FrameAt(start+minSilenceLen))
		if rms > threshold {
			continue
		}
		switch {
		case !open:
			open = true
			rangeStart = start
		case start != prev+seekStepMS && start > prev+minSilenceLen:
			ranges = append(ranges, Range{StartMS: rangeStart, EndMS: prev + minSilenceLen})
			rangeStart = start
		}
		prev = start
	}
	if open {
		ranges = append(ranges, Range{StartMS: rangeStart, EndMS: prev + minSilenceLen})
	}
	return ranges
}

// DetectNonsilent returns the complement of DetectSilence. Audio with no
// silence is one range; audio that is silent throughout has none.
func DetectNonsilent(pcm audio.PCM, minSilenceLen int, threshDBFS float64) []Range {
	total := pcm.DurationMS()
	silent := DetectSilence(pcm, minSilenceLen, threshDBFS)
	if len(silent) == 0 {
		return []Range{{StartMS: 0, EndMS: total}}
	}
	if silent[0].StartMS == 0 && silent[0].EndMS == total {
		return nil
	}

	ranges := make([]Range, 0, len(silent)+1)
	prevEnd := 0
	for _, r := range silent {
		ranges = append(ranges, Range{StartMS: prevEnd, EndMS: r.StartMS})
		prevEnd = r.EndMS
	}
	if prevEnd != total {
		ranges = append(ranges, Range{StartMS: prevEnd, EndMS: total})
	}
	if ranges[0].StartMS == 0 && ranges[0].EndMS == 0 {
		ranges = ranges[1:]
	}
	return ranges
}

// SplitRanges pads every nonsilent range by keepSilence on both sides. Where
// padding makes neighbours overlap they meet at the midpoint. Ranges are
// clamped to the audio and empty ranges are dropped.
func SplitRanges(pcm audio.PCM, minSilenceLen int, threshDBFS float64, keepSilence int) []Range {
	total := pcm.DurationMS()
	nonsilent := DetectNonsilent(pcm, minSilenceLen, threshDBFS)
	padded := make([]Range, len(nonsilent))
	for i, r := range nonsilent {
		padded[i] = Range{StartMS: r.StartMS - keepSilence, EndMS: r.EndMS + keepSilence}
	}
	for i := 0; i+1 < len(padded); i++ {
		if next := padded[i+1].StartMS; next < padded[i].EndMS {
			mid := floorDiv(padded[i].EndMS+next, 2)
			padded[i].EndMS = mid
			padded[i+1].StartMS = mid
		}
	}

	out := padded[:0]
	for _, r := range padded {
		r.StartMS = max(r.StartMS, 0)
		r.EndMS = min(r.EndMS, total)
		if r.Len() > 0 {
			out = append(out, r)
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
