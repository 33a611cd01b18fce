package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ayashare/internal/logging"
	"ayashare/internal/manifest"
	"ayashare/internal/media/audio"
	"ayashare/internal/services"
)

const stageName = "transcriber"

// DefaultRequestTimeout bounds each segment upload.
const DefaultRequestTimeout = 60 * time.Second

// Uploader sends one segment file to a transcription endpoint and returns the
// recognised text. Failures of the request itself must be *RequestError;
// any other error aborts the batch.
type Uploader interface {
	Upload(ctx context.Context, endpoint, path string) (string, error)
}

// DurationProber measures segment durations.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Service transcribes a directory of segments.
type Service struct {
	uploader Uploader
	prober   DurationProber
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService builds a transcriber. A zero timeout selects DefaultRequestTimeout.
func NewService(uploader Uploader, prober DurationProber, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if prober == nil {
		prober = audio.Prober{}
	}
	return &Service{
		uploader: uploader,
		prober:   prober,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, stageName),
	}
}

// RequestTimeout returns the per-segment upload timeout.
func (s *Service) RequestTimeout() time.Duration {
	return s.timeout
}

// Transcribe uploads every segment in segmentsDir to endpoint and writes the
// ordered transcripts to outputManifestPath. The result always has one record
// per segment file.
func (s *Service) Transcribe(ctx context.Context, endpoint, segmentsDir, outputManifestPath string) ([]manifest.TranscriptRecord, error) {
	info, err := os.Stat(segmentsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "validate", "segments directory not found: "+segmentsDir, nil)
		}
		return nil, services.Wrap(nil, stageName, "validate", "stat segments directory", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, stageName, "validate", "segments path is not a directory: "+segmentsDir, nil)
	}
	if s.uploader == nil {
		return nil, services.Wrap(nil, stageName, "validate", "no transcription backend configured", nil)
	}

	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	files, err := ListSegments(segmentsDir)
	if err != nil {
		return nil, services.Wrap(nil, stageName, "list", "read segments directory", err)
	}
	if len(files) == 0 {
		logging.WarnWithContext(logger, "no .wav segments found", "no_segments",
			logging.String("segments_dir", segmentsDir),
			logging.String(logging.FieldImpact, "no transcripts produced"),
		)
		return []manifest.TranscriptRecord{}, nil
	}

	logger.Info("transcribing segments",
		logging.Int("segment_count", len(files)),
		logging.String("endpoint", endpoint),
		logging.Duration("request_timeout", s.timeout),
	)

	started := time.Now()
	records := make([]manifest.TranscriptRecord, 0, len(files))
	failures := 0
	for i, path := range files {
		record, err := s.transcribeOne(services.WithSegmentIndex(ctx, i), endpoint, path, i, len(files))
		if err != nil {
			return nil, err
		}
		if record.Failed() {
			failures++
		}
		records = append(records, record)
	}

	if err := manifest.WriteTranscripts(outputManifestPath, records); err != nil {
		return nil, services.Wrap(nil, stageName, "persist", "write transcript manifest", err)
	}

	logger.Info("transcription complete",
		logging.Int("segment_count", len(records)),
		logging.Int("failed_count", failures),
		logging.String("manifest", outputManifestPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return records, nil
}

func (s *Service) transcribeOne(ctx context.Context, endpoint, path string, index, total int) (manifest.TranscriptRecord, error) {
	logger := logging.WithContext(ctx, s.logger)
	logger.Info(fmt.Sprintf("transcribing segment %d/%d", index+1, total), logging.String("file", filepath.Base(path)))

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	text, uploadErr := s.uploader.Upload(reqCtx, endpoint, path)
	cancel()

	if err := ctx.Err(); err != nil {
		return manifest.TranscriptRecord{}, err
	}

	record := manifest.TranscriptRecord{File: path, Text: text}
	if uploadErr != nil {
		var reqErr *RequestError
		if !errors.As(uploadErr, &reqErr) {
			return manifest.TranscriptRecord{}, services.Wrap(nil, stageName, "upload", filepath.Base(path), uploadErr)
		}
		record.Text = ""
		record.Error = reqErr.Error()
		logging.WarnWithContext(logger, "segment transcription failed", "segment_failed",
			logging.String("file", filepath.Base(path)),
			logging.String("error_kind", services.Kind(reqErr)),
			logging.String("error", record.Error),
			logging.String(logging.FieldImpact, "segment recorded with empty text"),
		)
	}

	duration, err := s.prober.Duration(ctx, path)
	if err != nil {
		return manifest.TranscriptRecord{}, services.Wrap(nil, stageName, "measure", filepath.Base(path), err)
	}
	record.DurationMS = audio.Milliseconds(duration)

	if uploadErr == nil {
		logger.Debug("segment transcribed",
			logging.String("file", filepath.Base(path)),
			logging.Int("text_chars", len([]rune(record.Text))),
			logging.Float64("duration_ms", record.DurationMS),
		)
	}
	return record, nil
}
