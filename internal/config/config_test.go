// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		HashAlg:     "sha256",
		IndexFormat: "csv",
		Provider:    "openai",
		Temperature: 0.2,
		Timeout:     time.Minute,
		MaxRetries:  3,
		Concurrency: 4,
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Root != "" {
		t.Errorf("Root = %s, want empty (XDG default)", cfg.Root)
	}
	if cfg.HashAlg != "sha256" {
		t.Errorf("HashAlg = %s, want sha256", cfg.HashAlg)
	}
	if cfg.IndexFormat != "csv" {
		t.Errorf("IndexFormat = %s, want csv", cfg.IndexFormat)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %s, want openai", cfg.Provider)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %s, want gpt-4o-mini", cfg.OpenAIModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %f, want 0 (unlimited)", cfg.RateLimit)
	}
	if cfg.CharmHost != "cloud.charm.sh" {
		t.Errorf("CharmHost = %s, want cloud.charm.sh", cfg.CharmHost)
	}
	if cfg.CharmDBName != "transdoc" {
		t.Errorf("CharmDBName = %s, want transdoc", cfg.CharmDBName)
	}
	if cfg.AutoSync {
		t.Error("AutoSync = true, want false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("TRANSDOC_ROOT", "/tmp/tm")
	os.Setenv("TRANSDOC_HASH", "blake3")
	os.Setenv("TRANSDOC_INDEX", "sqlite")
	os.Setenv("TRANSDOC_PROVIDER", "gemini")
	os.Setenv("TRANSDOC_FALLBACK_PROVIDER", "openai")
	os.Setenv("GEMINI_API_KEY", "g-key")
	os.Setenv("TRANSDOC_GEMINI_MODEL", "gemini-pro")
	os.Setenv("TRANSDOC_TIMEOUT", "90s")
	os.Setenv("TRANSDOC_MAX_RETRIES", "5")
	os.Setenv("TRANSDOC_RETRY_DELAY", "3s")
	os.Setenv("TRANSDOC_RATE_LIMIT", "2.5")
	os.Setenv("TRANSDOC_CONCURRENCY", "8")
	os.Setenv("CHARM_AUTO_SYNC", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Root != "/tmp/tm" {
		t.Errorf("Root = %s, want /tmp/tm", cfg.Root)
	}
	if cfg.HashAlg != "blake3" {
		t.Errorf("HashAlg = %s, want blake3", cfg.HashAlg)
	}
	if cfg.IndexFormat != "sqlite" {
		t.Errorf("IndexFormat = %s, want sqlite", cfg.IndexFormat)
	}
	if cfg.Provider != "gemini" || cfg.FallbackProvider != "openai" {
		t.Errorf("Provider = %s/%s, want gemini/openai", cfg.Provider, cfg.FallbackProvider)
	}
	if cfg.GeminiKey != "g-key" || cfg.GeminiModel != "gemini-pro" {
		t.Errorf("Gemini = %s/%s", cfg.GeminiKey, cfg.GeminiModel)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %f, want 2.5", cfg.RateLimit)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true")
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	os.Clearenv()
	os.Setenv("TRANSDOC_PROVIDER", "babelfish")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail for an unknown provider")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"stub provider", func(c *Config) { c.Provider = "stub" }, false},
		{"bad fallback", func(c *Config) { c.FallbackProvider = "nope" }, true},
		{"bad hash", func(c *Config) { c.HashAlg = "md5" }, true},
		{"bad index", func(c *Config) { c.IndexFormat = "json" }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, true},
		{"retries too high", func(c *Config) { c.MaxRetries = 15 }, true},
		{"retries negative", func(c *Config) { c.MaxRetries = -1 }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvFallbacksOnGarbage(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_INT", "many")
	os.Setenv("TEST_DUR", "soon")
	os.Setenv("TEST_FLOAT", "lots")

	if got := getEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt() = %d, want 7", got)
	}
	if got := getEnvDuration("TEST_DUR", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want 1s", got)
	}
	if got := getEnvFloat("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("getEnvFloat() = %f, want 0.5", got)
	}
}
