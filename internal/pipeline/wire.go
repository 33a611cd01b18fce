package pipeline

import (
	"log/slog"
	"net/http"

	"ayashare/internal/composer"
	"ayashare/internal/config"
	"ayashare/internal/media/audio"
	"ayashare/internal/segmenter"
	"ayashare/internal/transcriber"
)

// NewFromConfig wires the production stages from configuration. recorder and
// notifier may be nil.
func NewFromConfig(cfg *config.Config, recorder Recorder, notifier Notifier, logger *slog.Logger) *Orchestrator {
	return New(Dependencies{
		Segmenter:       NewSegmenter(cfg, logger),
		Transcriber:     NewTranscriber(cfg, logger),
		Composer:        NewComposer(cfg, logger),
		Recorder:        recorder,
		Notifier:        notifier,
		SegmentOptions:  SegmentOptions(cfg),
		ComposeTemplate: ComposeTemplate(cfg),
	}, logger)
}

// NewSegmenter builds the segmenter stage from configuration.
func NewSegmenter(cfg *config.Config, logger *slog.Logger) *segmenter.Service {
	decoder := audio.NewDecoder(cfg.FFmpegBinary(), cfg.Segmenter.SampleRate, cfg.Segmenter.Channels)
	return segmenter.NewService(decoder, logger)
}

// NewTranscriber builds the transcriber stage for the configured backend.
func NewTranscriber(cfg *config.Config, logger *slog.Logger) *transcriber.Service {
	var uploader transcriber.Uploader
	switch cfg.Transcription.Backend {
	case config.BackendOpenAI:
		uploader = transcriber.NewOpenAIUploader(cfg.Transcription.OpenAIAPIKey, cfg.Transcription.OpenAIModel, cfg.Transcription.Language)
	default:
		uploader = transcriber.NewHTTPUploader(&http.Client{})
	}
	prober := audio.Prober{FFprobe: cfg.FFprobeBinary()}
	return transcriber.NewService(uploader, prober, cfg.RequestTimeout(), logger)
}

// NewComposer builds the composer stage from configuration.
func NewComposer(cfg *config.Config, logger *slog.Logger) *composer.Service {
	return composer.NewService(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger)
}

// SegmentOptions maps configuration onto segmenter options.
func SegmentOptions(cfg *config.Config) segmenter.Options {
	return segmenter.Options{
		MinSilenceLen:       cfg.Segmenter.MinSilenceLenMS,
		SilenceThreshOffset: float64(cfg.Segmenter.SilenceThreshOffset),
		KeepSilence:         cfg.Segmenter.KeepSilenceMS,
		AudioFormat:         cfg.Segmenter.AudioFormat,
	}
}

// ComposeTemplate maps configuration onto composer rendering parameters.
func ComposeTemplate(cfg *config.Config) composer.Request {
	return composer.Request{
		FadeDuration:       cfg.Video.FadeDuration,
		MinDurationForFade: cfg.Video.MinDurationForFade,
		FontSize:           cfg.Video.FontSize,
		TextColor:          cfg.Video.TextColor,
		FPS:                cfg.Video.FPS,
		VideoCodec:         cfg.Video.VideoCodec,
		AudioCodec:         cfg.Video.AudioCodec,
		WriteSubtitles:     cfg.Video.WriteSubtitles,
	}
}

// RequestFromConfig builds a run request for audioPath using configured paths.
// endpoint overrides the configured transcription endpoint when non-empty. The
// container hint comes from the audio file's extension; files without one fall
// back to segmenter.audio_format.
func RequestFromConfig(cfg *config.Config, audioPath, endpoint string) Request {
	if endpoint == "" {
		endpoint = cfg.Transcription.Endpoint
	}
	return Request{
		AudioPath:             audioPath,
		AudioFormat:           audio.FormatFromPath(audioPath),
		OutputVideoPath:       cfg.OutputVideoPath(),
		WorkDir:               cfg.Paths.WorkDir,
		TranscriptionEndpoint: endpoint,
		BackgroundImagePath:   cfg.Video.BackgroundImage,
		FontPath:              cfg.Video.FontFile,
	}
}
