package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !isHTTPURL(topic) {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	if c.Segmenter.MinSilenceLenMS <= 0 {
		return errors.New("segmenter.min_silence_len_ms must be positive")
	}
	if c.Segmenter.SilenceThreshOffset <= 0 {
		return errors.New("segmenter.silence_thresh_offset_db must be positive")
	}
	if c.Segmenter.KeepSilenceMS < 0 {
		return errors.New("segmenter.keep_silence_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case BackendHTTP:
	case BackendOpenAI:
		if c.Transcription.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key is required for the openai backend (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q (want %q or %q)", c.Transcription.Backend, BackendHTTP, BackendOpenAI)
	}
	if c.Transcription.RequestTimeout <= 0 {
		return errors.New("transcription.request_timeout must be positive")
	}
	if endpoint := c.Transcription.Endpoint; endpoint != "" && !isHTTPURL(endpoint) {
		return fmt.Errorf("transcription.endpoint must be an http(s) URL, got %q", endpoint)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Host != "" && (parsed.Scheme == "http" || parsed.Scheme == "https")
}

func (c *Config) validateVideo() error {
	if c.Video.FadeDuration < 0 {
		return errors.New("video.fade_duration must be non-negative")
	}
	if c.Video.MinDurationForFade < 0 {
		return errors.New("video.min_duration_for_fade must be non-negative")
	}
	if c.Video.FontSize <= 0 {
		return errors.New("video.font_size must be positive")
	}
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if strings.ContainsAny(c.Video.TextColor, ":,;'[]\\ ") {
		return fmt.Errorf("video.text_color contains unsupported characters: %q", c.Video.TextColor)
	}
	return nil
}
