// Package config loads the relay configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/dailypulse/relay/pkg/logger"
)

// Config is the full relay configuration document.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	API       APIConfig            `yaml:"api"`
	Queue     QueueConfig          `yaml:"queue"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
}

// ServerConfig configures the local control API listener.
type ServerConfig struct {
	Host string `yaml:"host" env:"RELAY_HOST"`
	Port int    `yaml:"port" env:"RELAY_PORT"`
}

// APIConfig points at the remote collection service.
type APIConfig struct {
	// BaseURL is the user-supplied collection service address; a full
	// endpoint URL is accepted and normalized.
	BaseURL string `yaml:"base_url" env:"RELAY_API_BASE_URL"`
}

// QueueConfig tunes the durable delivery queue.
type QueueConfig struct {
	// DataDir overrides the per-installation durable directory holding
	// the queue document and credential.
	DataDir            string `yaml:"data_dir" env:"RELAY_DATA_DIR"`
	RetentionHours     int    `yaml:"retention_hours" env:"RELAY_RETENTION_HOURS"`
	BackoffBaseSeconds int    `yaml:"backoff_base_seconds" env:"RELAY_BACKOFF_BASE_SECONDS"`
	BackoffMaxSeconds  int    `yaml:"backoff_max_seconds" env:"RELAY_BACKOFF_MAX_SECONDS"`
	// SweepSchedule is a cron expression for the maintenance drain.
	SweepSchedule string `yaml:"sweep_schedule" env:"RELAY_SWEEP_SCHEDULE"`
}

// RateLimitConfig bounds control API request rates per client.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RELAY_RATE_RPS"`
	Burst             int `yaml:"burst" env:"RELAY_RATE_BURST"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8480},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Queue: QueueConfig{
			RetentionHours:     24,
			BackoffBaseSeconds: 60,
			BackoffMaxSeconds:  86400,
			SweepSchedule:      "@hourly",
		},
		RateLimit: RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
	}
}

// Load reads the configuration file at path, then applies environment
// overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

// LoadOrDefault loads path when it exists and otherwise returns the
// defaults with environment overrides applied.
func LoadOrDefault(path string) *Config {
	if path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return Default()
	}
	if err := cfg.validate(); err != nil {
		return Default()
	}
	return cfg
}

func applyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return fmt.Errorf("apply environment overrides: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Queue.RetentionHours <= 0 {
		return fmt.Errorf("retention_hours must be positive")
	}
	if c.Queue.BackoffBaseSeconds <= 0 || c.Queue.BackoffMaxSeconds < c.Queue.BackoffBaseSeconds {
		return fmt.Errorf("invalid backoff bounds %d..%d", c.Queue.BackoffBaseSeconds, c.Queue.BackoffMaxSeconds)
	}
	return nil
}
