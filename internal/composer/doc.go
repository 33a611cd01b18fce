// Package composer renders the captioned video from a transcript manifest.
//
// Every transcript with text and a positive duration becomes one clip: the
// background image held for the segment's duration with the caption centred
// over it. Captions fade in and out unless the clip is too short (see
// EffectiveFade). Clips are rendered by ffmpeg into a private temp directory,
// concatenated in manifest order, and muxed with the narration track. The
// output runs as long as the sum of the clips. Clip lengths are whole frames
// counted on the cumulative timeline, so each caption starts within half a
// frame of its segment however many clips precede it.
//
// Captions are NFC-normalised and wrapped to the background width using the
// caption font's glyph advances. An optional SRT file with the same timings
// can be written beside the video.
package composer
