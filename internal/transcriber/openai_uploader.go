package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIUploader transcribes segments with the OpenAI audio API. The endpoint
// passed to Upload overrides the API base URL when set.
type OpenAIUploader struct {
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

// NewOpenAIUploader configures an OpenAI-backed uploader.
func NewOpenAIUploader(apiKey, model, language string) *OpenAIUploader {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}
	return &OpenAIUploader{apiKey: apiKey, model: model, language: language, httpClient: &http.Client{}}
}

func (u *OpenAIUploader) client(endpoint string) *openai.Client {
	cfg := openai.DefaultConfig(u.apiKey)
	if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint != "" {
		cfg.BaseURL = endpoint
	}
	cfg.HTTPClient = u.httpClient
	return openai.NewClientWithConfig(cfg)
}

// Upload sends the segment to the transcription API.
func (u *OpenAIUploader) Upload(ctx context.Context, endpoint, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open segment: %w", err)
	}
	defer file.Close()

	resp, err := u.client(endpoint).CreateTranscription(ctx, openai.AudioRequest{
		Model:    u.model,
		FilePath: filepath.Base(path),
		Reader:   file,
		Language: u.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		reqErr := newRequestError(err)
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && !reqErr.Timeout {
			reqErr.Detail = fmt.Sprintf("%d %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", reqErr
	}
	return resp.Text, nil
}
