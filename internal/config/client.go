package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig holds the advisor CLI configuration.
type ClientConfig struct {
	BaseURL        string
	Nationality    string
	RequestTimeout time.Duration // 0 leaves requests without a deadline
	LogPath        string
	NoColor        bool
}

// LoadClient reads the CLI configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		BaseURL:        getEnv("ADVISOR_BASE_URL", "http://localhost:8080"),
		Nationality:    getEnv("DEFAULT_NATIONALITY", "Nigeria"),
		RequestTimeout: getEnvDuration("ADVISOR_REQUEST_TIMEOUT", 0),
		LogPath:        getEnv("ADVISOR_LOG_PATH", filepath.Join(os.TempDir(), "japa-advisor.log")),
		NoColor:        os.Getenv("NO_COLOR") != "", // any non-empty value
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("ADVISOR_BASE_URL cannot be empty")
	}
	if c.Nationality == "" {
		return fmt.Errorf("DEFAULT_NATIONALITY cannot be empty")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("ADVISOR_REQUEST_TIMEOUT cannot be negative")
	}
	if c.LogPath == "" {
		return fmt.Errorf("ADVISOR_LOG_PATH cannot be empty")
	}
	return nil
}
