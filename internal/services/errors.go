package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrEmptyInput           = errors.New("empty input")
	ErrNoValidClips         = errors.New("no valid clips")
	ErrTranscriptionTimeout = errors.New("transcription timeout")
	ErrTranscriptionRequest = errors.New("transcription request failed")
	ErrExternalTool         = errors.New("external tool error")
)

// Error kinds reported by Kind. KindUnexpected covers every failure that does
// not carry one of the markers above.
const (
	KindNotFound             = "not_found"
	KindInvalidArgument      = "invalid_argument"
	KindEmptyInput           = "empty_input"
	KindNoValidClips         = "no_valid_clips"
	KindTranscriptionTimeout = "transcription_timeout"
	KindTranscriptionRequest = "transcription_request"
	KindExternalTool         = "external_tool"
	KindUnexpected           = "unexpected"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above; a nil marker leaves the error unclassified.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	switch {
	case marker == nil && err == nil:
		return errors.New(detail)
	case marker == nil:
		return fmt.Errorf("%s: %w", detail, err)
	case err != nil:
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	default:
		return fmt.Errorf("%w: %s", marker, detail)
	}
}

// Kind maps an error onto the stable kind string stored with run history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrNoValidClips):
		return KindNoValidClips
	case errors.Is(err, ErrTranscriptionTimeout):
		return KindTranscriptionTimeout
	case errors.Is(err, ErrTranscriptionRequest):
		return KindTranscriptionRequest
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindUnexpected
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
