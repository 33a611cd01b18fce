package config

const (
	defaultConfigPath          = "~/.config/ayashare/config.toml"
	defaultWorkDir             = "~/.local/share/ayashare/upload"
	defaultAssetsDir           = "~/.local/share/ayashare/assets"
	defaultUploadDir           = "~/.local/share/ayashare/incoming"
	defaultLogDir              = "~/.local/share/ayashare/logs"
	defaultStateDir            = "~/.local/share/ayashare/state"
	defaultAPIBind             = "127.0.0.1:7488"
	defaultOutputVideoName     = "final_video.mp4"
	defaultBackgroundImageName = "bg.png"
	defaultFontFileName        = "TheYearofTheCamel-Regular.otf"
	defaultMinSilenceLenMS     = 100
	defaultSilenceThreshOffset = 16
	defaultKeepSilenceMS       = 25
	defaultAudioFormat         = "mp3"
	defaultSampleRate          = 44100
	defaultChannels            = 1
	defaultBackend             = BackendHTTP
	defaultRequestTimeout      = 60
	defaultOpenAIModel         = "whisper-1"
	defaultOpenAIEndpoint      = "https://api.openai.com/v1"
	defaultFadeDuration        = 0.8
	defaultMinDurationForFade  = 1.0
	defaultFontSize            = 60
	defaultTextColor           = "white"
	defaultFPS                 = 24
	defaultVideoCodec          = "libx264"
	defaultAudioCodec          = "aac"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 14
	defaultNotifyTimeout       = 10
)

// Transcription backends.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			AssetsDir: defaultAssetsDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			APIBind:   defaultAPIBind,
		},
		Segmenter: Segmenter{
			MinSilenceLenMS:     defaultMinSilenceLenMS,
			SilenceThreshOffset: defaultSilenceThreshOffset,
			KeepSilenceMS:       defaultKeepSilenceMS,
			AudioFormat:         defaultAudioFormat,
			SampleRate:          defaultSampleRate,
			Channels:            defaultChannels,
		},
		Transcription: Transcription{
			Backend:        defaultBackend,
			RequestTimeout: defaultRequestTimeout,
			OpenAIModel:    defaultOpenAIModel,
		},
		Video: Video{
			FadeDuration:       defaultFadeDuration,
			MinDurationForFade: defaultMinDurationForFade,
			FontSize:           defaultFontSize,
			TextColor:          defaultTextColor,
			FPS:                defaultFPS,
			VideoCodec:         defaultVideoCodec,
			AudioCodec:         defaultAudioCodec,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
