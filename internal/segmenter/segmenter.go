package segmenter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"ayashare/internal/logging"
	"ayashare/internal/manifest"
	"ayashare/internal/media/audio"
	"ayashare/internal/services"
)

const stageName = "segmenter"

var chunkPattern = regexp.MustCompile(`^chunk_\d+\.wav$`)

// Options control how the recording is split. Lengths are milliseconds and
// SilenceThreshOffset is how many dB below the average loudness a window must
// sit to count as silence.
type Options struct {
	MinSilenceLen       int
	SilenceThreshOffset float64
	KeepSilence         int
	AudioFormat         string
}

// DefaultOptions returns the split parameters the pipeline ships with.
func DefaultOptions() Options {
	return Options{
		MinSilenceLen:       100,
		SilenceThreshOffset: 16,
		KeepSilence:         25,
		AudioFormat:         "mp3",
	}
}

// Decoder loads audio files into PCM.
type Decoder interface {
	Decode(ctx context.Context, path, format string) (audio.PCM, error)
}

// Service splits recordings into silence-delimited segments.
type Service struct {
	decoder Decoder
	logger  *slog.Logger
}

// NewService builds a segmenter.
func NewService(decoder Decoder, logger *slog.Logger) *Service {
	return &Service{
		decoder: decoder,
		logger:  logging.NewComponentLogger(logger, stageName),
	}
}

// ChunkName returns the file name of the segment at index.
func ChunkName(index int) string {
	return fmt.Sprintf("chunk_%d.wav", index)
}

// Segment splits audioPath at silences, writes each segment to outputDir as
// chunk_<i>.wav, and persists the ordered records to outputDir/chunks.json.
// Chunks and the segment manifest left in outputDir by an earlier run are
// removed first, so the directory only ever holds this run's segments.
// Zero detected segments is not an error: the result is empty and no
// manifest is written.
func (s *Service) Segment(ctx context.Context, audioPath, outputDir string, opts Options) ([]manifest.SegmentRecord, error) {
	if err := validate(audioPath, opts); err != nil {
		return nil, err
	}
	if s.decoder == nil {
		return nil, services.Wrap(nil, stageName, "decode", "no audio decoder configured", nil)
	}

	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(nil, stageName, "prepare", "create output directory", err)
	}

	logger.Info("loading audio",
		logging.String("audio_path", audioPath),
		logging.String("format", opts.AudioFormat),
	)
	pcm, err := s.decoder.Decode(ctx, audioPath, opts.AudioFormat)
	if err != nil {
		return nil, services.Wrap(nil, stageName, "decode", "load audio "+audioPath, err)
	}

	average := pcm.DBFS()
	threshold := average - opts.SilenceThreshOffset
	logger.Info("audio loaded",
		logging.Int("duration_ms", pcm.DurationMS()),
		logging.Float64("average_dbfs", roundDB(average)),
		logging.Float64("silence_thresh_dbfs", roundDB(threshold)),
	)

	ranges := SplitRanges(pcm, opts.MinSilenceLen, threshold, opts.KeepSilence)
	stale, err := clearOutputs(outputDir)
	if err != nil {
		return nil, services.Wrap(nil, stageName, "prepare", "remove previous segments", err)
	}
	if stale > 0 {
		logger.Info("removed previous segments", logging.Int("removed_files", stale))
	}
	if len(ranges) == 0 {
		logging.WarnWithContext(logger, "no segments detected", "no_segments",
			logging.String(logging.FieldImpact, "nothing to transcribe or compose"),
			logging.String("hint", "audio may be too short or silent throughout"),
		)
		return []manifest.SegmentRecord{}, nil
	}

	logger.Info("exporting segments", logging.Int("segment_count", len(ranges)))
	records := make([]manifest.SegmentRecord, 0, len(ranges))
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk := pcm.Slice(r.StartMS, r.EndMS)
		path := filepath.Join(outputDir, ChunkName(i))
		if err := audio.WriteWAV(path, chunk); err != nil {
			return nil, services.Wrap(nil, stageName, "export", fmt.Sprintf("write segment %d", i), err)
		}
		records = append(records, manifest.SegmentRecord{File: path, DurationMS: chunk.DurationMS()})
		logger.Debug("exported segment",
			logging.Int(logging.FieldSegmentIndex, i),
			logging.Int("start_ms", r.StartMS),
			logging.Int("duration_ms", chunk.DurationMS()),
		)
	}

	manifestPath := filepath.Join(outputDir, manifest.SegmentsFile)
	if err := manifest.WriteSegments(manifestPath, records); err != nil {
		return nil, services.Wrap(nil, stageName, "persist", "write segment manifest", err)
	}

	logger.Info("segmentation complete",
		logging.Int("segment_count", len(records)),
		logging.String("manifest", manifestPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return records, nil
}

// clearOutputs deletes chunk files and the segment manifest from dir and
// reports how many files went.
func clearOutputs(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (name != manifest.SegmentsFile && !chunkPattern.MatchString(name)) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func validate(audioPath string, opts Options) error {
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageName, "validate", "audio file not found: "+audioPath, nil)
		}
		return services.Wrap(nil, stageName, "validate", "stat audio file", err)
	}
	if opts.MinSilenceLen <= 0 {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate",
			fmt.Sprintf("min_silence_len must be positive, got %d", opts.MinSilenceLen), nil)
	}
	if opts.SilenceThreshOffset <= 0 || math.IsNaN(opts.SilenceThreshOffset) {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate",
			fmt.Sprintf("silence_thresh_offset must be positive, got %v", opts.SilenceThreshOffset), nil)
	}
	if opts.KeepSilence < 0 {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate",
			fmt.Sprintf("keep_silence must be non-negative, got %d", opts.KeepSilence), nil)
	}
	return nil
}

func roundDB(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}
