package composer

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
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ayashare/internal/fileutil"
	"ayashare/internal/logging"
	"ayashare/internal/manifest"
	"ayashare/internal/media/audio"
	"ayashare/internal/media/ffprobe"
	"ayashare/internal/services"
)

const stageName = "composer"

// narrationDriftTolerance is how far the narration may run from the clip
// timeline before a warning is logged.
const narrationDriftTolerance = time.Second

var colorPattern = regexp.MustCompile(`^(#|0x)?[A-Za-z0-9]+(@[0-9]*\.?[0-9]+)?$`)

// Request describes one composition.
type Request struct {
	ManifestDir        string
	OutputPath         string
	NarrationPath      string
	BackgroundPath     string
	FontPath           string
	FadeDuration       float64
	MinDurationForFade float64
	FontSize           int
	TextColor          string
	FPS                int
	VideoCodec         string
	AudioCodec         string
	WriteSubtitles     bool
}

// DefaultRequest returns a request carrying the default rendering parameters.
func DefaultRequest() Request {
	return Request{
		FadeDuration:       0.8,
		MinDurationForFade: 1.0,
		FontSize:           60,
		TextColor:          "white",
		FPS:                24,
		VideoCodec:         "libx264",
		AudioCodec:         "aac",
	}
}

// Result summarises a finished composition.
type Result struct {
	OutputPath   string        `json:"output_path"`
	SubtitlePath string        `json:"subtitle_path,omitempty"`
	ClipCount    int           `json:"clip_count"`
	SkippedCount int           `json:"skipped_count"`
	Duration     time.Duration `json:"duration_ns"`
}

// Service renders caption videos with ffmpeg.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	run           CommandRunner
	probe         ffprobe.Runner
	logger        *slog.Logger
}

// NewService builds a composer using the given ffmpeg and ffprobe executables.
func NewService(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	return &Service{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		run:           execRunner,
		logger:        logging.NewComponentLogger(logger, stageName),
	}
}

// WithCommandRunner overrides how ffmpeg is executed.
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	s.run = runner
	return s
}

// WithProbeRunner overrides how ffprobe is executed.
func (s *Service) WithProbeRunner(runner ffprobe.Runner) *Service {
	s.probe = runner
	return s
}

type clipPlan struct {
	index    int
	text     string
	duration float64
	fade     float64
	frames   int
}

// Compose renders the video described by req and returns where it was written.
func (s *Service) Compose(ctx context.Context, req Request) (Result, error) {
	req = withDefaults(req)
	manifestPath := filepath.Join(req.ManifestDir, manifest.TranscriptsFile)
	if err := checkInputs(manifestPath, req); err != nil {
		return Result{}, err
	}

	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, s.logger)

	records, err := manifest.ReadTranscripts(manifestPath)
	if err != nil {
		return Result{}, services.Wrap(nil, stageName, "load", "read transcript manifest", err)
	}
	if len(records) == 0 {
		return Result{}, services.Wrap(services.ErrEmptyInput, stageName, "load", "transcript manifest has no records: "+manifestPath, nil)
	}

	plans := s.planClips(logger, records, req)
	skipped := len(records) - len(plans)
	if len(plans) == 0 {
		return Result{}, services.Wrap(services.ErrNoValidClips, stageName, "plan",
			fmt.Sprintf("all %d transcripts were skipped", len(records)), nil)
	}
	if skipped > 0 {
		logging.WarnWithContext(logger, "skipped invalid clips", "clips_skipped",
			logging.Int("skipped_count", skipped),
			logging.Int("clip_count", len(plans)),
			logging.String(logging.FieldImpact, "those segments have no caption on screen"),
		)
	}

	durations := make([]float64, len(plans))
	for i, plan := range plans {
		durations[i] = plan.duration
	}
	for i, frames := range frameSpans(durations, req.FPS) {
		plans[i].frames = frames
	}

	width, err := s.backgroundWidth(ctx, req.BackgroundPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "probe", "read background dimensions", err)
	}
	measure, fontErr := loadMeasurer(req.FontPath, req.FontSize)
	if fontErr != nil {
		if measure == nil {
			return Result{}, services.Wrap(nil, stageName, "font", "read font", fontErr)
		}
		logger.Debug("font metrics unavailable; estimating caption width", logging.Error(fontErr))
	}
	maxWidth := int(float64(width) * captionWidthRatio)

	output, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "resolve output path", err)
	}
	narration, err := filepath.Abs(req.NarrationPath)
	if err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "resolve narration path", err)
	}
	background, err := filepath.Abs(req.BackgroundPath)
	if err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "resolve background path", err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "create output directory", err)
	}

	workDir, err := os.MkdirTemp("", "ayashare-compose-")
	if err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "create temp directory", err)
	}
	defer os.RemoveAll(workDir)

	fontName := "caption_font" + strings.ToLower(filepath.Ext(req.FontPath))
	if err := fileutil.CopyFile(req.FontPath, filepath.Join(workDir, fontName)); err != nil {
		return Result{}, services.Wrap(nil, stageName, "prepare", "stage font", err)
	}

	started := time.Now()
	logger.Info("rendering clips",
		logging.Int("clip_count", len(plans)),
		logging.Int("frame_width", width),
		logging.Int("fps", req.FPS),
	)

	progress := logging.NewProgressSampler(25)
	clipFiles := make([]string, 0, len(plans))
	cues := make([]Cue, 0, len(plans))
	var total float64
	for n, plan := range plans {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if plan.frames == 0 {
			logger.Debug("skipping clip shorter than one frame",
				logging.Int(logging.FieldSegmentIndex, plan.index),
				logging.Float64("duration_s", plan.duration),
			)
			total += plan.duration
			continue
		}
		lines := wrapCaption(measure, plan.text, maxWidth)
		textFile := fmt.Sprintf("caption_%d.txt", n)
		if err := os.WriteFile(filepath.Join(workDir, textFile), []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return Result{}, services.Wrap(nil, stageName, "render", "write caption text", err)
		}
		clip := clipSpec{
			Background: background,
			FontFile:   fontName,
			TextFile:   textFile,
			Output:     fmt.Sprintf("clip_%d.mp4", n),
			Frames:     plan.frames,
			Fade:       plan.fade,
			FontSize:   req.FontSize,
			TextColor:  req.TextColor,
			FPS:        req.FPS,
			VideoCodec: req.VideoCodec,
		}
		if err := s.run(ctx, workDir, s.ffmpegBinary, clip.args()...); err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, stageName, "render", fmt.Sprintf("render clip for segment %d", plan.index), err)
		}
		logger.Debug("rendered clip",
			logging.Int(logging.FieldSegmentIndex, plan.index),
			logging.Float64("duration_s", plan.duration),
			logging.Int("frames", plan.frames),
			logging.Float64("fade_s", plan.fade),
			logging.Int("lines", len(lines)),
		)
		if percent := float64(n+1) / float64(len(plans)) * 100; progress.ShouldLog(percent, "render") {
			logger.Info("render progress",
				logging.Int("clips_done", n+1),
				logging.Int("clip_count", len(plans)),
				logging.Float64("percent", percent),
			)
		}
		clipFiles = append(clipFiles, clip.Output)
		cues = append(cues, Cue{
			Start: secondsToDuration(total),
			End:   secondsToDuration(total + plan.duration),
			Text:  strings.Join(lines, "\n"),
		})
		total += plan.duration
	}

	if len(clipFiles) == 0 {
		return Result{}, services.Wrap(services.ErrNoValidClips, stageName, "plan",
			fmt.Sprintf("every caption is shorter than one frame at %d fps", req.FPS), nil)
	}

	const listFile = "clips.txt"
	if err := os.WriteFile(filepath.Join(workDir, listFile), []byte(concatList(clipFiles)), 0o644); err != nil {
		return Result{}, services.Wrap(nil, stageName, "concat", "write clip list", err)
	}

	partial := partialPath(output)
	defer os.Remove(partial)
	if err := s.run(ctx, workDir, s.ffmpegBinary, finalArgs(listFile, narration, partial, req.AudioCodec, total)...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stageName, "encode", "concatenate clips with narration", err)
	}
	if err := os.Rename(partial, output); err != nil {
		return Result{}, services.Wrap(nil, stageName, "encode", "move video into place", err)
	}

	result := Result{
		OutputPath:   output,
		ClipCount:    len(clipFiles),
		SkippedCount: len(records) - len(clipFiles),
		Duration:     secondsToDuration(total),
	}
	if req.WriteSubtitles {
		result.SubtitlePath = strings.TrimSuffix(output, filepath.Ext(output)) + ".srt"
		if err := writeSRT(result.SubtitlePath, cues); err != nil {
			return Result{}, services.Wrap(nil, stageName, "subtitles", "write srt", err)
		}
	}

	s.checkNarrationDrift(ctx, logger, narration, result.Duration)

	fields := []logging.Attr{
		logging.String("output", output),
		logging.Int("clip_count", result.ClipCount),
		logging.Int("skipped_count", result.SkippedCount),
		logging.Duration("video_duration", result.Duration),
		logging.Duration("elapsed", time.Since(started)),
	}
	if info, err := os.Stat(output); err == nil {
		fields = append(fields, logging.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	logger.Info("video composed", logging.Args(fields...)...)
	return result, nil
}

func (s *Service) planClips(logger *slog.Logger, records []manifest.TranscriptRecord, req Request) []clipPlan {
	plans := make([]clipPlan, 0, len(records))
	for i, rec := range records {
		text := NormalizeCaption(rec.Text)
		switch {
		case text == "":
			logger.Debug("skipping clip with empty text", logging.Int(logging.FieldSegmentIndex, i))
			continue
		case rec.DurationMS <= 0 || math.IsNaN(rec.DurationMS):
			logger.Debug("skipping clip with invalid duration",
				logging.Int(logging.FieldSegmentIndex, i),
				logging.Float64("duration_ms", rec.DurationMS),
			)
			continue
		}
		duration := rec.DurationMS / 1000
		plans = append(plans, clipPlan{
			index:    i,
			text:     text,
			duration: duration,
			fade:     EffectiveFade(duration, req.FadeDuration, req.MinDurationForFade),
		})
	}
	return plans
}

func (s *Service) backgroundWidth(ctx context.Context, path string) (int, error) {
	var (
		result ffprobe.Result
		err    error
	)
	if s.probe != nil {
		result, err = ffprobe.InspectWith(ctx, s.probe, s.ffprobeBinary, path)
	} else {
		result, err = ffprobe.Inspect(ctx, s.ffprobeBinary, path)
	}
	if err != nil {
		return 0, err
	}
	width, _ := result.Dimensions()
	if width <= 0 {
		return 0, fmt.Errorf("%s has no image stream", path)
	}
	return width, nil
}

func (s *Service) checkNarrationDrift(ctx context.Context, logger *slog.Logger, narration string, timeline time.Duration) {
	prober := audio.Prober{FFprobe: s.ffprobeBinary, Runner: s.probe}
	narrationDuration, err := prober.Duration(ctx, narration)
	if err != nil {
		logger.Debug("narration duration unavailable", logging.Error(err))
		return
	}
	drift := narrationDuration - timeline
	if drift < 0 {
		drift = -drift
	}
	if drift > narrationDriftTolerance {
		logging.WarnWithContext(logger, "narration length differs from caption timeline", "narration_drift",
			logging.Duration("narration_duration", narrationDuration),
			logging.Duration("video_duration", timeline),
			logging.String(logging.FieldImpact, "captions may drift from speech; narration is cut to the timeline"),
		)
	}
}

func withDefaults(req Request) Request {
	defaults := DefaultRequest()
	if strings.TrimSpace(req.TextColor) == "" {
		req.TextColor = defaults.TextColor
	}
	if strings.TrimSpace(req.VideoCodec) == "" {
		req.VideoCodec = defaults.VideoCodec
	}
	if strings.TrimSpace(req.AudioCodec) == "" {
		req.AudioCodec = defaults.AudioCodec
	}
	return req
}

func checkInputs(manifestPath string, req Request) error {
	required := []struct {
		label string
		path  string
	}{
		{"transcript manifest", manifestPath},
		{"background image", req.BackgroundPath},
		{"font file", req.FontPath},
		{"narration audio", req.NarrationPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.path) == "" {
			return services.Wrap(services.ErrNotFound, stageName, "validate", r.label+" path is empty", nil)
		}
		if _, err := os.Stat(r.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return services.Wrap(services.ErrNotFound, stageName, "validate", r.label+" not found: "+r.path, nil)
			}
			return services.Wrap(nil, stageName, "validate", "stat "+r.label, err)
		}
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", "output path is empty", nil)
	}
	if req.FadeDuration < 0 || math.IsNaN(req.FadeDuration) {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", fmt.Sprintf("fade_duration must be >= 0, got %v", req.FadeDuration), nil)
	}
	if req.MinDurationForFade < 0 {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", fmt.Sprintf("min_duration_for_fade must be >= 0, got %v", req.MinDurationForFade), nil)
	}
	if req.FontSize <= 0 {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", fmt.Sprintf("font_size must be > 0, got %d", req.FontSize), nil)
	}
	if req.FPS <= 0 {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", fmt.Sprintf("fps must be > 0, got %d", req.FPS), nil)
	}
	if !colorPattern.MatchString(req.TextColor) {
		return services.Wrap(services.ErrInvalidArgument, stageName, "validate", fmt.Sprintf("unsupported text color %q", req.TextColor), nil)
	}
	return nil
}

func partialPath(output string) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(filepath.Base(output), ext)
	return filepath.Join(filepath.Dir(output), "."+base+".partial"+ext)
}

func secondsToDuration(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}
