package pipeline

import "time"

// Status is the overall outcome of a run.
type Status string

const (
	StatusStarted Status = "started"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Stage is the last stage a run completed.
type Stage string

const (
	StageStarted     Stage = "started"
	StageSegmented   Stage = "segmented"
	StageTranscribed Stage = "transcribed"
	StageComposed    Stage = "composed"
)

// Request describes one end-to-end run. An empty TranscriptionEndpoint skips
// transcription; the work dir must then already hold transcriptions.json.
type Request struct {
	RunID                 string
	AudioPath             string
	OutputVideoPath       string
	WorkDir               string
	TranscriptionEndpoint string
	BackgroundImagePath   string
	FontPath              string

	// AudioFormat overrides the configured segmenter container hint.
	AudioFormat string
}

// Result is the aggregate outcome of a run, filled in as stages complete.
type Result struct {
	RunID               string    `json:"run_id"`
	Status              Status    `json:"status"`
	Stage               Stage     `json:"stage"`
	AudioPath           string    `json:"audio_path"`
	ChunksCount         int       `json:"chunks_count"`
	ChunksDir           string    `json:"chunks_dir,omitempty"`
	TranscriptionsCount int       `json:"transcriptions_count"`
	VideoPath           string    `json:"video_path,omitempty"`
	Error               string    `json:"error,omitempty"`
	ErrorKind           string    `json:"error_kind,omitempty"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at,omitzero"`
}

// Finished reports whether the run reached a terminal status.
func (r Result) Finished() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed
}

// Elapsed returns the run's wall time, or zero while it is still running.
func (r Result) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
