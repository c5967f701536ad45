package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Nationality != "Nigeria" {
		t.Errorf("Nationality = %q, want Nigeria", cfg.Nationality)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Requirements.CacheTTL != 24*time.Hour {
		t.Errorf("Requirements.CacheTTL = %v", cfg.Requirements.CacheTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://japa.example.com")
	t.Setenv("OPENAI_TIMEOUT", "90")
	t.Setenv("REQUIREMENTS_CACHE_TTL", "2h")
	t.Setenv("ROADMAP_RATE_LIMIT_RPS", "1.5")
	t.Setenv("ROADMAP_RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("LLM.Timeout = %v, want 90s", cfg.LLM.Timeout)
	}
	if cfg.Requirements.CacheTTL != 2*time.Hour {
		t.Errorf("CacheTTL = %v, want 2h", cfg.Requirements.CacheTTL)
	}
	if cfg.RateLimit.RequestsPerSecond != 1.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.RateLimit.Burst != 3 {
		t.Errorf("Burst = %d, want fallback 3", cfg.RateLimit.Burst)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode for public FRONTEND_URL")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "https://japa.example.com" {
		t.Errorf("AllowedOrigins() = %v", got)
	}
}

func TestValidateRejectsEmptyDBPath(t *testing.T) {
	t.Setenv("DB_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty DB_PATH")
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("ADVISOR_BASE_URL", "https://api.japa.example.com")
	t.Setenv("ADVISOR_REQUEST_TIMEOUT", "45s")
	t.Setenv("NO_COLOR", "")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if cfg.BaseURL != "https://api.japa.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.LogPath == "" {
		t.Error("LogPath empty")
	}

	if cfg.NoColor {
		t.Error("NoColor = true without NO_COLOR")
	}

	t.Setenv("NO_COLOR", "x")
	cfg, err = LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}
	if !cfg.NoColor {
		t.Error("NoColor = false with NO_COLOR=x")
	}

	t.Setenv("ADVISOR_BASE_URL", "")
	if _, err := LoadClient(); err == nil {
		t.Fatal("expected error for empty ADVISOR_BASE_URL")
	}
}
