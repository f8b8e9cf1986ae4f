package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Scripts ScriptConfig
	HTTP    HTTPConfig
	Logging LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ScriptConfig holds music-source script runtime configuration.
type ScriptConfig struct {
	Dir          string        `envconfig:"SCRIPT_DIR" default:"./scripts"`
	SettingsPath string        `envconfig:"SCRIPT_SETTINGS" default:"./settings.json"`
	CallTimeout  time.Duration `envconfig:"SCRIPT_CALL_TIMEOUT" default:"15s"`
}

// HTTPConfig holds outbound HTTP client configuration for the script bridge.
type HTTPConfig struct {
	Timeout   time.Duration `envconfig:"BRIDGE_HTTP_TIMEOUT" default:"30s"`
	RetryMax  int           `envconfig:"BRIDGE_HTTP_RETRY_MAX" default:"2"`
	RateLimit float64       `envconfig:"BRIDGE_HTTP_RATE_LIMIT" default:"0"`
	UserAgent string        `envconfig:"BRIDGE_HTTP_USER_AGENT" default:"Kanade-Source/1.0"`
	MaxBodyMB int64         `envconfig:"BRIDGE_HTTP_MAX_BODY_MB" default:"32"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("kanade", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Scripts: ScriptConfig{
			Dir:          "./scripts",
			SettingsPath: "./settings.json",
			CallTimeout:  15 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			RetryMax:  2,
			UserAgent: "Kanade-Source/1.0",
			MaxBodyMB: 32,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
