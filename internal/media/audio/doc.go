// Package audio holds decoded PCM audio and the file plumbing around it.
//
// PCM buffers are interleaved signed integer samples with loudness helpers
// (RMS, dBFS) and millisecond slicing. WAV files are read and written with
// go-audio; every other format is decoded by streaming ffmpeg's s16le output.
// Durations are measured from WAV headers, MP3 frame headers, or ffprobe,
// depending on the file extension.
package audio
