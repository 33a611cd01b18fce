package composer

import "math"

// EffectiveFade returns the fade-in/out length in seconds for a clip of
// duration seconds. Clips no longer than minForFade get no fade, and the fade
// never exceeds a third of the clip.
func EffectiveFade(duration, fade, minForFade float64) float64 {
	if duration <= minForFade || fade <= 0 {
		return 0
	}
	return math.Min(fade, duration/3)
}

// frameSpans converts clip durations in seconds into whole frame counts at
// fps. Boundaries are rounded on the cumulative timeline, so clip k always
// starts within half a frame of the sum of the durations before it and the
// counts add up to round(total*fps). A clip shorter than a frame may get 0.
func frameSpans(durations []float64, fps int) []int {
	spans := make([]int, len(durations))
	var elapsed float64
	startFrame := 0
	for i, d := range durations {
		elapsed += d
		endFrame := int(math.Round(elapsed * float64(fps)))
		spans[i] = endFrame - startFrame
		startFrame = endFrame
	}
	return spans
}
