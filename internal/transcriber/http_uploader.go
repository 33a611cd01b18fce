package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// HTTPUploader posts segment audio as multipart/form-data.
type HTTPUploader struct {
	client *http.Client
}

// NewHTTPUploader returns an uploader using client, or a default client when nil.
// Per-request deadlines come from the caller's context.
func NewHTTPUploader(client *http.Client) *HTTPUploader {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPUploader{client: client}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Upload sends the file at path to endpoint and returns the "text" field of
// the JSON reply. A 2xx reply that is not a JSON object with a string text
// field yields empty text.
func (u *HTTPUploader) Upload(ctx context.Context, endpoint, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read segment: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", &RequestError{Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", newRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return "", &RequestError{Detail: statusDetail(resp.StatusCode, endpoint)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newRequestError(err)
	}
	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", nil
	}
	return decoded.Text, nil
}

func statusDetail(code int, endpoint string) string {
	kind := "Server Error"
	if code >= 400 && code < 500 {
		kind = "Client Error"
	}
	text := http.StatusText(code)
	if text == "" {
		text = "Unknown Status"
	}
	return fmt.Sprintf("%d %s: %s for url: %s", code, kind, text, endpoint)
}
