package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Download      DownloadConfig      `mapstructure:"download"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Poller        PollerConfig        `mapstructure:"poller"`
	Queue         QueueConfig         `mapstructure:"queue"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// AudioConfig contains audio staging settings
type AudioConfig struct {
	Dir string `mapstructure:"dir"`
}

// DownloadConfig caps the streaming episode download.
type DownloadConfig struct {
	MaxBytes  int64         `mapstructure:"max_bytes"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// TranscriptionConfig contains transcription provider settings. The provider,
// external URL, API key and model can be overridden at runtime through the
// app-settings store; values there win over these.
type TranscriptionConfig struct {
	Provider            string        `mapstructure:"provider"` // local | external
	WhisperURL          string        `mapstructure:"whisper_url"`
	ExternalBaseURL     string        `mapstructure:"external_base_url"`
	ExternalAPIKey      string        `mapstructure:"external_api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxUploadBytes      int64         `mapstructure:"max_upload_bytes"`
	ChunkSeconds        int           `mapstructure:"chunk_seconds"`
	ChunkBitrateKbps    int           `mapstructure:"chunk_bitrate_kbps"`
	FFmpegPath          string        `mapstructure:"ffmpeg_path"`
	RatePerMinute       int           `mapstructure:"rate_per_minute"`
	Retry429BaseSeconds int           `mapstructure:"retry_429_base_seconds"`
	Retry429MaxSeconds  int           `mapstructure:"retry_429_max_seconds"`
}

// LLMConfig contains enrichment provider settings
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // ollama | openrouter
	OllamaBaseURL     string        `mapstructure:"ollama_base_url"`
	OllamaModel       string        `mapstructure:"ollama_model"`
	OpenRouterBaseURL string        `mapstructure:"openrouter_base_url"`
	OpenRouterAPIKey  string        `mapstructure:"openrouter_api_key"`
	OpenRouterModel   string        `mapstructure:"openrouter_model"`
	OpenRouterSiteURL string        `mapstructure:"openrouter_site_url"`
	OpenRouterAppName string        `mapstructure:"openrouter_app_name"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MinInterval       time.Duration `mapstructure:"min_interval"`
	RetryBase         time.Duration `mapstructure:"retry_base"`
	RetryMax          time.Duration `mapstructure:"retry_max"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
}

// PollerConfig contains feed polling settings
type PollerConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	InitialImportLimit int           `mapstructure:"initial_import_limit"`
	MaxEpisodesPerFeed int           `mapstructure:"max_episodes_per_feed"`
}

// QueueConfig contains worker pool settings
type QueueConfig struct {
	Workers       int           `mapstructure:"workers"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}
