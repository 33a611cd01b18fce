package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ayashare/internal/composer"
	"ayashare/internal/logging"
	"ayashare/internal/manifest"
	"ayashare/internal/segmenter"
	"ayashare/internal/services"
)

// LockFileName is the lock taken inside the work directory for a run.
const LockFileName = ".ayashare.lock"

// Segmenter splits the source audio.
type Segmenter interface {
	Segment(ctx context.Context, audioPath, outputDir string, opts segmenter.Options) ([]manifest.SegmentRecord, error)
}

// Transcriber converts segment files into transcripts.
type Transcriber interface {
	Transcribe(ctx context.Context, endpoint, segmentsDir, outputManifestPath string) ([]manifest.TranscriptRecord, error)
}

// Composer renders the final video.
type Composer interface {
	Compose(ctx context.Context, req composer.Request) (composer.Result, error)
}

// Recorder persists run results. Failures are logged and never fail the run.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Notifier announces finished runs. Failures are logged and never fail the run.
type Notifier interface {
	RunFinished(ctx context.Context, result Result) error
}

// Dependencies are the stages and settings an Orchestrator runs with.
type Dependencies struct {
	Segmenter      Segmenter
	Transcriber    Transcriber
	Composer       Composer
	Recorder       Recorder
	Notifier       Notifier
	SegmentOptions segmenter.Options
	// ComposeTemplate carries rendering parameters; paths are filled per run.
	ComposeTemplate composer.Request
}

// Orchestrator executes pipeline runs.
type Orchestrator struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New builds an orchestrator.
func New(deps Dependencies, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    time.Now,
	}
}

// Run executes one pipeline run. The returned Result is always populated;
// on failure it carries StatusFailed and the error is returned as well.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	result := Result{
		RunID:     runID,
		Status:    StatusStarted,
		Stage:     StageStarted,
		AudioPath: req.AudioPath,
		StartedAt: o.now().UTC(),
	}

	fail := func(err error) (Result, error) {
		result.Status = StatusFailed
		result.Error = err.Error()
		result.ErrorKind = services.Kind(err)
		result.FinishedAt = o.now().UTC()
		logger.Error("pipeline failed",
			logging.String("stage_reached", string(result.Stage)),
			logging.String("error_kind", result.ErrorKind),
			logging.Error(err),
		)
		o.record(ctx, logger, result)
		o.notify(ctx, logger, result)
		return result, err
	}

	if err := validateRequest(req); err != nil {
		return fail(err)
	}
	if err := ensureDirectories(req); err != nil {
		return fail(err)
	}

	lock := flock.New(filepath.Join(req.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fail(services.Wrap(nil, "pipeline", "lock", "acquire work dir lock", err))
	}
	if !locked {
		return fail(services.Wrap(services.ErrInvalidArgument, "pipeline", "lock",
			"another run is using work dir "+req.WorkDir, nil))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release work dir lock", logging.Error(err))
		}
	}()

	logger.Info("pipeline started",
		logging.String("audio_path", req.AudioPath),
		logging.String("work_dir", req.WorkDir),
		logging.Bool("transcription_enabled", req.TranscriptionEndpoint != ""),
	)
	o.record(ctx, logger, result)

	logger.Info("step 1/3: segmenting audio", logging.String(logging.FieldEventType, "stage_start"))
	segmentOpts := o.deps.SegmentOptions
	if format := strings.TrimSpace(req.AudioFormat); format != "" {
		segmentOpts.AudioFormat = format
	}
	segments, err := o.deps.Segmenter.Segment(ctx, req.AudioPath, req.WorkDir, segmentOpts)
	if err != nil {
		return fail(err)
	}
	result.ChunksCount = len(segments)
	result.ChunksDir = req.WorkDir
	result.Stage = StageSegmented
	if len(segments) == 0 {
		return fail(services.Wrap(services.ErrEmptyInput, "pipeline", "segment",
			"no speech segments detected in "+req.AudioPath, nil))
	}

	if req.TranscriptionEndpoint != "" {
		logger.Info("step 2/3: transcribing segments", logging.String(logging.FieldEventType, "stage_start"))
		transcripts, err := o.deps.Transcriber.Transcribe(ctx, req.TranscriptionEndpoint, req.WorkDir,
			filepath.Join(req.WorkDir, manifest.TranscriptsFile))
		if err != nil {
			return fail(err)
		}
		result.TranscriptionsCount = len(transcripts)
		result.Stage = StageTranscribed
	} else {
		logging.WarnWithContext(logger, "step 2/3: skipping transcription, no endpoint configured", "transcription_skipped",
			logging.String(logging.FieldImpact, "composer uses the existing transcriptions.json"),
		)
	}

	logger.Info("step 3/3: composing video", logging.String(logging.FieldEventType, "stage_start"))
	composeReq := o.deps.ComposeTemplate
	composeReq.ManifestDir = req.WorkDir
	composeReq.OutputPath = req.OutputVideoPath
	composeReq.NarrationPath = req.AudioPath
	composeReq.BackgroundPath = req.BackgroundImagePath
	composeReq.FontPath = req.FontPath
	composed, err := o.deps.Composer.Compose(ctx, composeReq)
	if err != nil {
		return fail(err)
	}
	result.VideoPath = composed.OutputPath
	result.Stage = StageComposed
	result.Status = StatusSuccess
	result.FinishedAt = o.now().UTC()

	logger.Info("pipeline completed",
		logging.Int("chunks_count", result.ChunksCount),
		logging.Int("transcriptions_count", result.TranscriptionsCount),
		logging.String("video_path", result.VideoPath),
		logging.Duration("elapsed", result.Elapsed()),
	)
	o.record(ctx, logger, result)
	o.notify(ctx, logger, result)
	return result, nil
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, result Result) {
	if o.deps.Recorder == nil {
		return
	}
	if err := o.deps.Recorder.Record(context.WithoutCancel(ctx), result); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is missing from history"),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, result Result) {
	if o.deps.Notifier == nil {
		return
	}
	if err := o.deps.Notifier.RunFinished(context.WithoutCancel(ctx), result); err != nil {
		logging.WarnWithContext(logger, "failed to send run notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "nobody was alerted about this run"),
		)
	}
}

func validateRequest(req Request) error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(req.AudioPath) == "" {
		missing = append(missing, "audio path")
	}
	if strings.TrimSpace(req.WorkDir) == "" {
		missing = append(missing, "work dir")
	}
	if strings.TrimSpace(req.OutputVideoPath) == "" {
		missing = append(missing, "output video path")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrInvalidArgument, "pipeline", "validate",
			fmt.Sprintf("missing %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}

// ensureDirectories creates the work directory and the output video's parent.
func ensureDirectories(req Request) error {
	for _, dir := range []string{req.WorkDir, filepath.Dir(req.OutputVideoPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(nil, "pipeline", "prepare", "create directory "+dir, err)
		}
	}
	return nil
}
