// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the API server configuration.
type Config struct {
	Port         string
	FrontendURL  string
	DBPath       string
	Nationality  string
	LLM          LLMConfig
	Requirements RequirementsConfig
	RateLimit    RateLimitConfig
}

// LLMConfig configures the OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// RequirementsConfig controls scraping and caching of visa requirements.
type RequirementsConfig struct {
	CacheTTL      time.Duration
	SweepInterval time.Duration
	ScrapeTimeout time.Duration
	UserAgent     string
}

// RateLimitConfig bounds roadmap generations per client.
// A non-positive RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/advisor.db"),
		Nationality: getEnv("DEFAULT_NATIONALITY", "Nigeria"),
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
		},
		Requirements: RequirementsConfig{
			CacheTTL:      getEnvDuration("REQUIREMENTS_CACHE_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("REQUIREMENTS_SWEEP_INTERVAL", 30*time.Minute),
			ScrapeTimeout: getEnvDuration("REQUIREMENTS_SCRAPE_TIMEOUT", 15*time.Second),
			UserAgent:     getEnv("SCRAPER_USER_AGENT", defaultUserAgent),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("ROADMAP_RATE_LIMIT_RPS", 0.2),
			Burst:             getEnvInt("ROADMAP_RATE_LIMIT_BURST", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Nationality == "" {
		return fmt.Errorf("DEFAULT_NATIONALITY cannot be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("OPENAI_BASE_URL cannot be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be > 0")
	}
	if c.Requirements.CacheTTL <= 0 {
		return fmt.Errorf("REQUIREMENTS_CACHE_TTL must be > 0")
	}
	if c.Requirements.SweepInterval <= 0 {
		return fmt.Errorf("REQUIREMENTS_SWEEP_INTERVAL must be > 0")
	}
	if c.Requirements.ScrapeTimeout <= 0 {
		return fmt.Errorf("REQUIREMENTS_SCRAPE_TIMEOUT must be > 0")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ROADMAP_RATE_LIMIT_BURST must be > 0 when rate limiting is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the API.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
