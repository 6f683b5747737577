package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultDatabasePath   = "./data/swiftcamp.db"
	defaultLessonsFile    = "assets/lessons.json"
	defaultDeepseekURL    = "https://api.deepseek.com/v1/chat/completions"
	defaultExecutionDelay = time.Second
)

// Config holds all the configuration for the application
type Config struct {
	BotToken       string
	DeepseekAPIKey string
	DeepseekAPIURL string
	DatabasePath   string
	LessonsFile    string
	LearnerID      int64
	ExecutionDelay time.Duration
	LogMode        string
	MetricsAddr    string
	Location       *time.Location
	Debug          bool
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:       os.Getenv("BOT_TOKEN"),
		DeepseekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		DeepseekAPIURL: envOrDefault("DEEPSEEK_API_URL", defaultDeepseekURL),
		DatabasePath:   envOrDefault("DB_PATH", defaultDatabasePath),
		LessonsFile:    envOrDefault("LESSONS_FILE", defaultLessonsFile),
		ExecutionDelay: defaultExecutionDelay,
		LogMode:        envOrDefault("LOG_MODE", "dev"),
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
		Location:       time.Local,
		Debug:          os.Getenv("DEBUG") == "true",
	}

	if v := os.Getenv("LEARNER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LEARNER_ID %q: %w", v, err)
		}
		cfg.LearnerID = id
	}

	if v := os.Getenv("EXECUTION_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EXECUTION_DELAY %q: %w", v, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid EXECUTION_DELAY %q: must not be negative", v)
		}
		cfg.ExecutionDelay = d
	}

	if v := os.Getenv("TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", v, err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// RequireBot checks the settings only the Telegram bot needs
func (c *Config) RequireBot() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN environment variable is required")
	}
	return nil
}

// TutorEnabled reports whether a tutor API key was configured
func (c *Config) TutorEnabled() bool {
	return c.DeepseekAPIKey != ""
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
