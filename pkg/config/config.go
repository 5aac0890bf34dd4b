package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system.
// This should be called once at application startup.
func Init() error {
	once.Do(func() {
		// Pull a local .env into the process environment before viper reads it.
		_ = godotenv.Load()

		setDefaults()

		viper.SetEnvPrefix("PODLISTENER")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine: defaults plus env vars apply.
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct.
// Init() must be called before using this.
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 config value
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch viper.GetString("transcription.provider") {
	case "local", "external":
	default:
		return fmt.Errorf("invalid transcription provider: %q", viper.GetString("transcription.provider"))
	}

	switch viper.GetString("llm.provider") {
	case "ollama", "openrouter":
	default:
		return fmt.Errorf("invalid llm provider: %q", viper.GetString("llm.provider"))
	}

	// Auto-correct invalid worker count.
	if viper.GetInt("queue.workers") <= 0 {
		viper.Set("queue.workers", 2)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 2
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/podlistener.db")
	viper.SetDefault("database.verbose", false)

	// Audio staging
	viper.SetDefault("audio.dir", "./data/audio")

	// Download caps
	viper.SetDefault("download.max_bytes", int64(524288000)) // 500 MiB
	viper.SetDefault("download.timeout", 900*time.Second)
	viper.SetDefault("download.user_agent", "podlistener/1.0")

	// Transcription defaults
	viper.SetDefault("transcription.provider", "local")
	viper.SetDefault("transcription.whisper_url", "http://whisper:8000")
	viper.SetDefault("transcription.external_base_url", "https://api.openai.com/v1")
	viper.SetDefault("transcription.external_api_key", "")
	viper.SetDefault("transcription.model", "Systran/faster-whisper-small")
	viper.SetDefault("transcription.timeout", 900*time.Second)
	viper.SetDefault("transcription.max_upload_bytes", int64(26214400)) // 25 MiB
	viper.SetDefault("transcription.chunk_seconds", 600)
	viper.SetDefault("transcription.chunk_bitrate_kbps", 48)
	viper.SetDefault("transcription.ffmpeg_path", "ffmpeg")
	viper.SetDefault("transcription.rate_per_minute", 6)
	viper.SetDefault("transcription.retry_429_base_seconds", 90)
	viper.SetDefault("transcription.retry_429_max_seconds", 1800)

	// LLM defaults
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.ollama_base_url", "http://ollama:11434")
	viper.SetDefault("llm.ollama_model", "llama3.2:3b")
	viper.SetDefault("llm.openrouter_base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("llm.openrouter_api_key", "")
	viper.SetDefault("llm.openrouter_model", "openai/gpt-4o-mini")
	viper.SetDefault("llm.openrouter_site_url", "")
	viper.SetDefault("llm.openrouter_app_name", "podlistener")
	viper.SetDefault("llm.timeout", 120*time.Second)
	viper.SetDefault("llm.min_interval", 2*time.Second)
	viper.SetDefault("llm.retry_base", 5*time.Second)
	viper.SetDefault("llm.retry_max", 120*time.Second)
	viper.SetDefault("llm.retry_attempts", 3)

	// Poller defaults
	viper.SetDefault("poller.interval", 15*time.Minute)
	viper.SetDefault("poller.initial_import_limit", 10)
	viper.SetDefault("poller.max_episodes_per_feed", 10)

	// Queue defaults
	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.poll_interval", time.Second)
	viper.SetDefault("queue.retention_days", 7)
}
