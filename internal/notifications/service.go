package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ayashare/internal/config"
	"ayashare/internal/pipeline"
	"ayashare/internal/textutil"
)

const userAgent = "ayashare/0.1"

// Service publishes run notifications.
type Service interface {
	RunFinished(ctx context.Context, result pipeline.Result) error
	Test(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) RunFinished(ctx context.Context, result pipeline.Result) error {
	return n.send(ctx, runMessage(result))
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "ayashare - Test",
		body:     "Notification test from ayashare",
		tags:     []string{"ayashare", "test"},
		priority: "low",
	})
}

func runMessage(result pipeline.Result) message {
	name := textutil.StemToken(result.AudioPath, result.RunID)
	if result.Status == pipeline.StatusSuccess {
		var b strings.Builder
		fmt.Fprintf(&b, "Video ready for %s: %d segment(s), %d transcript(s)", name, result.ChunksCount, result.TranscriptionsCount)
		if elapsed := result.Elapsed(); elapsed > 0 {
			fmt.Fprintf(&b, " in %s", elapsed.Round(time.Second))
		}
		if result.VideoPath != "" {
			b.WriteString("\n" + result.VideoPath)
		}
		return message{
			title: "ayashare - Video Ready",
			body:  b.String(),
			tags:  []string{"ayashare", "video", "success"},
		}
	}

	body := fmt.Sprintf("Run %s for %s failed (last stage: %s)", result.RunID, name, result.Stage)
	if result.Error != "" {
		body += "\n" + result.Error
	}
	tags := []string{"ayashare", "error"}
	if result.ErrorKind != "" {
		tags = append(tags, result.ErrorKind)
	}
	return message{
		title:    "ayashare - Run Failed",
		body:     body,
		tags:     tags,
		priority: "high",
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) RunFinished(context.Context, pipeline.Result) error { return nil }
func (noopService) Test(context.Context) error                         { return nil }
