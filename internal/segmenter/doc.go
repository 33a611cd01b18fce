// Package segmenter splits a spoken-word recording into utterance segments.
//
// The recording is decoded to PCM, its average loudness sets the silence
// threshold, and a sliding window finds silent runs of at least the minimum
// length. Each nonsilent region, padded on both sides, is exported as
// chunk_<i>.wav where i is the temporal position, and the ordered list is
// written to chunks.json once every segment is on disk.
package segmenter
