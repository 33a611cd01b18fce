// Package manifest defines the JSON records handed between pipeline stages
// and reads and writes them atomically.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"ayashare/internal/fileutil"
)

const (
	// SegmentsFile is the segment manifest written next to the exported chunks.
	SegmentsFile = "chunks.json"
	// TranscriptsFile is the transcript manifest consumed by the composer.
	TranscriptsFile = "transcriptions.json"
)

// SegmentRecord describes one exported speech segment.
type SegmentRecord struct {
	File       string `json:"file"`
	DurationMS int    `json:"duration_ms"`
}

// TranscriptRecord is the transcription outcome for one segment. Error is
// set only when the request failed.
type TranscriptRecord struct {
	File       string  `json:"file"`
	Text       string  `json:"text"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// Failed reports whether the segment could not be transcribed.
func (r TranscriptRecord) Failed() bool {
	return r.Error != ""
}

// WriteSegments persists records to path.
func WriteSegments(path string, records []SegmentRecord) error {
	if records == nil {
		records = []SegmentRecord{}
	}
	return writeJSON(path, records)
}

// ReadSegments loads a segment manifest.
func ReadSegments(path string) ([]SegmentRecord, error) {
	var records []SegmentRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteTranscripts persists records to path.
func WriteTranscripts(path string, records []TranscriptRecord) error {
	if records == nil {
		records = []TranscriptRecord{}
	}
	return writeJSON(path, records)
}

// ReadTranscripts loads a transcript manifest.
func ReadTranscripts(path string) ([]TranscriptRecord, error) {
	var records []TranscriptRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return nil
}

// writeJSON encodes v with two-space indentation and non-ASCII left as-is,
// then renames it over path so readers never observe a partial manifest.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	err := fileutil.WriteAtomic(path, func(f *os.File) error {
		_, err := f.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
