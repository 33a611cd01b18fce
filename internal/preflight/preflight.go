package preflight

import (
	"context"
	"strings"

	"ayashare/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check that applies to cfg.
// Endpoint reachability is only probed when an endpoint is configured; an
// empty endpoint is reported as an optional failure because the pipeline
// then skips transcription.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckBinaries([]Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Required for decoding and video composition"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Required for media inspection"},
	})

	results = append(results,
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFile("Background image", cfg.Video.BackgroundImage),
		CheckFile("Caption font", cfg.Video.FontFile),
	)

	switch cfg.Transcription.Backend {
	case config.BackendOpenAI:
		results = append(results, CheckOpenAIKey(cfg.Transcription.OpenAIAPIKey))
		if strings.TrimSpace(cfg.Transcription.Endpoint) != "" {
			results = append(results, CheckEndpoint(ctx, cfg.Transcription.Endpoint))
		}
	default:
		if strings.TrimSpace(cfg.Transcription.Endpoint) == "" {
			results = append(results, Result{
				Name:     endpointCheckName,
				Optional: true,
				Detail:   "not configured (transcription will be skipped)",
			})
		} else {
			results = append(results, CheckEndpoint(ctx, cfg.Transcription.Endpoint))
		}
	}
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
