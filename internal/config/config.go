package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reviewpulse/reviewpulse/internal/notify"
)

// Config holds all configuration for the pipeline
type Config struct {
	// DatabaseURL is a postgres:// DSN or a SQLite file path
	DatabaseURL string `yaml:"database_url"`

	// AlertThreshold is the global negative-review count that flips a
	// district to alerting. Copied into each ledger row at creation.
	AlertThreshold int64 `yaml:"alert_threshold"`

	Batch      BatchConfig        `yaml:"batch"`
	Classifier ClassifierConfig   `yaml:"classifier"`
	Scheduler  SchedulerConfig    `yaml:"scheduler"`
	SMTP       notify.SMTPConfig  `yaml:"smtp"`
	Slack      notify.SlackConfig `yaml:"slack"`
}

// BatchConfig controls CSV batch extraction
type BatchConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"`
}

// ClassifierConfig selects the sentiment classifier implementation
type ClassifierConfig struct {
	// Mode is "lexicon" (default) or "remote"
	Mode           string   `yaml:"mode"`
	InferenceURL   string   `yaml:"inference_url"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	PositiveTerms  []string `yaml:"positive_terms"`
	NegativeTerms  []string `yaml:"negative_terms"`
}

// SchedulerConfig controls the interval runner
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// Load reads configuration from a YAML file (optional) and applies
// environment-variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:    "reviewpulse.db",
		AlertThreshold: 20,
		Batch:          BatchConfig{Size: 500},
		Classifier:     ClassifierConfig{Mode: "lexicon"},
		Scheduler:      SchedulerConfig{IntervalMinutes: 30},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.AlertThreshold = getEnvAsInt64OrDefault("ALERT_THRESHOLD", cfg.AlertThreshold)
	cfg.Batch.File = getEnvOrDefault("BATCH_FILE", cfg.Batch.File)
	cfg.Batch.Size = getEnvAsIntOrDefault("BATCH_SIZE", cfg.Batch.Size)
	cfg.Scheduler.IntervalMinutes = getEnvAsIntOrDefault("SCHEDULE_INTERVAL_MINUTES", cfg.Scheduler.IntervalMinutes)
	cfg.SMTP.Password = getEnvOrDefault("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.Slack.BotToken = getEnvOrDefault("SLACK_BOT_TOKEN", cfg.Slack.BotToken)

	if cfg.Batch.Size < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", cfg.Batch.Size)
	}
	if cfg.Scheduler.IntervalMinutes < 1 {
		return nil, fmt.Errorf("scheduler interval must be >= 1 minute, got %d", cfg.Scheduler.IntervalMinutes)
	}

	return cfg, nil
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsInt64OrDefault returns the value of an environment variable as an int64 or a default value
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
