package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSegmenter()
	c.normalizeTranscription()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = f.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*f.value))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeSegmenter() {
	c.Segmenter.AudioFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Segmenter.AudioFormat), "."))
	if c.Segmenter.AudioFormat == "" {
		c.Segmenter.AudioFormat = defaultAudioFormat
	}
	if c.Segmenter.SampleRate <= 0 {
		c.Segmenter.SampleRate = defaultSampleRate
	}
	if c.Segmenter.Channels <= 0 {
		c.Segmenter.Channels = defaultChannels
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultBackend
	}
	c.Transcription.Endpoint = strings.TrimSpace(c.Transcription.Endpoint)
	if c.Transcription.Endpoint == "" {
		if value, ok := os.LookupEnv("AYASHARE_TRANSCRIPTION_ENDPOINT"); ok {
			c.Transcription.Endpoint = strings.TrimSpace(value)
		}
	}
	if c.Transcription.Endpoint == "" && c.Transcription.Backend == BackendOpenAI {
		c.Transcription.Endpoint = defaultOpenAIEndpoint
	}
	c.Transcription.OpenAIAPIKey = strings.TrimSpace(c.Transcription.OpenAIAPIKey)
	if c.Transcription.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.OpenAIModel = strings.TrimSpace(c.Transcription.OpenAIModel)
	if c.Transcription.OpenAIModel == "" {
		c.Transcription.OpenAIModel = defaultOpenAIModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.RequestTimeout == 0 {
		c.Transcription.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeVideo() error {
	var err error
	if strings.TrimSpace(c.Video.BackgroundImage) == "" {
		c.Video.BackgroundImage = filepath.Join(c.Paths.AssetsDir, defaultBackgroundImageName)
	}
	if c.Video.BackgroundImage, err = expandPath(strings.TrimSpace(c.Video.BackgroundImage)); err != nil {
		return fmt.Errorf("video.background_image: %w", err)
	}
	if strings.TrimSpace(c.Video.FontFile) == "" {
		c.Video.FontFile = filepath.Join(c.Paths.AssetsDir, defaultFontFileName)
	}
	if c.Video.FontFile, err = expandPath(strings.TrimSpace(c.Video.FontFile)); err != nil {
		return fmt.Errorf("video.font_file: %w", err)
	}
	if strings.TrimSpace(c.Video.OutputPath) != "" {
		if c.Video.OutputPath, err = expandPath(strings.TrimSpace(c.Video.OutputPath)); err != nil {
			return fmt.Errorf("video.output_path: %w", err)
		}
	}
	c.Video.TextColor = strings.TrimSpace(c.Video.TextColor)
	if c.Video.TextColor == "" {
		c.Video.TextColor = defaultTextColor
	}
	c.Video.VideoCodec = strings.TrimSpace(c.Video.VideoCodec)
	if c.Video.VideoCodec == "" {
		c.Video.VideoCodec = defaultVideoCodec
	}
	c.Video.AudioCodec = strings.TrimSpace(c.Video.AudioCodec)
	if c.Video.AudioCodec == "" {
		c.Video.AudioCodec = defaultAudioCodec
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
