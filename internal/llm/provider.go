// ABOUTME: Translation provider contract and construction from configuration
// ABOUTME: Builds the configured provider and wraps it with protection, retry, breaker and rate limit
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/transdoc/internal/config"
	"github.com/harper/transdoc/internal/logging"
	"github.com/harper/transdoc/internal/models"
)

// Request is one chunk to translate
type Request struct {
	Text       string
	Source     models.Language
	Target     models.Language
	Vocabulary []models.VocabEntry
}

// Provider translates one chunk of text. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

// NewProvider builds the provider named by cfg.Provider, plus the fallback when one is set
func NewProvider(ctx context.Context, cfg *config.Config, logger *log.Logger) (Provider, error) {
	logger = logging.OrDiscard(logger)

	primary, err := newWrapped(ctx, cfg.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackProvider == "" || strings.EqualFold(cfg.FallbackProvider, cfg.Provider) {
		return primary, nil
	}

	secondary, err := newWrapped(ctx, cfg.FallbackProvider, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	return NewFallback(primary, secondary, logger), nil
}

// newWrapped builds one provider with its middleware. Placeholder protection is outermost
// so tokens are inserted once; the limiter is innermost so every attempt waits its turn.
func newWrapped(ctx context.Context, name string, cfg *config.Config, logger *log.Logger) (Provider, error) {
	base, err := newBase(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	p := base
	if cfg.RateLimit > 0 {
		p = WithRateLimit(p, cfg.RateLimit, 1)
	}
	if cfg.BreakerFailures > 0 {
		p = WithBreaker(p, cfg.BreakerFailures, cfg.Timeout, logger)
	}
	if cfg.MaxRetries > 0 {
		p = WithRetry(p, cfg.MaxRetries, cfg.RetryDelay, logger)
	}
	return WithProtection(p), nil
}

func newBase(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return NewOpenAIClientWithConfig(&ClientConfig{
			APIKey:      cfg.OpenAIKey,
			ChatModel:   cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: float32(cfg.Temperature),
		})
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.GeminiKey,
			Model:       cfg.GeminiModel,
			Temperature: float32(cfg.Temperature),
		})
	case "stub", "echo":
		return NewStub(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
