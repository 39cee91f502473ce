// ABOUTME: Centralized configuration for the transdoc CLI and MCP server
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a transdoc process
type Config struct {
	// Translation memory settings
	Root        string
	HashAlg     string
	IndexFormat string

	// Provider settings
	Provider         string
	FallbackProvider string
	OpenAIKey        string
	OpenAIModel      string
	OpenAIBaseURL    string
	GeminiKey        string
	GeminiModel      string
	Temperature      float64
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	RateLimit        float64
	BreakerFailures  int
	Concurrency      int

	// Logging
	LogLevel string

	// Charm settings
	CharmHost   string
	CharmDBName string
	AutoSync    bool
}

// Known provider names
var providers = map[string]bool{"openai": true, "gemini": true, "stub": true, "echo": true}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Root:             os.Getenv("TRANSDOC_ROOT"),
		HashAlg:          getEnv("TRANSDOC_HASH", "sha256"),
		IndexFormat:      getEnv("TRANSDOC_INDEX", "csv"),
		Provider:         getEnv("TRANSDOC_PROVIDER", "openai"),
		FallbackProvider: os.Getenv("TRANSDOC_FALLBACK_PROVIDER"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("TRANSDOC_OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		GeminiKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("TRANSDOC_GEMINI_MODEL", "gemini-2.0-flash"),
		Temperature:      getEnvFloat("TRANSDOC_TEMPERATURE", 0.2),
		Timeout:          getEnvDuration("TRANSDOC_TIMEOUT", 60*time.Second),
		MaxRetries:       getEnvInt("TRANSDOC_MAX_RETRIES", 3),
		RetryDelay:       getEnvDuration("TRANSDOC_RETRY_DELAY", 2*time.Second),
		RateLimit:        getEnvFloat("TRANSDOC_RATE_LIMIT", 0),
		BreakerFailures:  getEnvInt("TRANSDOC_BREAKER_FAILURES", 5),
		Concurrency:      getEnvInt("TRANSDOC_CONCURRENCY", 4),
		LogLevel:         getEnv("TRANSDOC_LOG_LEVEL", "info"),
		CharmHost:        getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:      getEnv("CHARM_DB", "transdoc"),
		AutoSync:         getEnvBool("CHARM_AUTO_SYNC", false),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if !providers[strings.ToLower(c.Provider)] {
		return fmt.Errorf("TRANSDOC_PROVIDER must be openai, gemini, stub or echo, got %q", c.Provider)
	}
	if c.FallbackProvider != "" && !providers[strings.ToLower(c.FallbackProvider)] {
		return fmt.Errorf("TRANSDOC_FALLBACK_PROVIDER must be openai, gemini, stub or echo, got %q", c.FallbackProvider)
	}
	if c.HashAlg != "sha256" && c.HashAlg != "blake3" {
		return fmt.Errorf("TRANSDOC_HASH must be sha256 or blake3, got %q", c.HashAlg)
	}
	if c.IndexFormat != "csv" && c.IndexFormat != "sqlite" {
		return fmt.Errorf("TRANSDOC_INDEX must be csv or sqlite, got %q", c.IndexFormat)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TRANSDOC_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("TRANSDOC_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.Concurrency < 1 || c.Concurrency > 64 {
		return fmt.Errorf("TRANSDOC_CONCURRENCY must be 1-64, got %d", c.Concurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("TRANSDOC_RATE_LIMIT must be >= 0, got %f", c.RateLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("TRANSDOC_TIMEOUT must be positive, got %v", c.Timeout)
	}
	if c.BreakerFailures < 0 {
		return fmt.Errorf("TRANSDOC_BREAKER_FAILURES must be >= 0, got %d", c.BreakerFailures)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
