// ABOUTME: Gemini provider for chunk translation via the Google GenAI SDK
// ABOUTME: Sends the shared prompt through Models.GenerateContent
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/transdoc/internal/errs"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini provider
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiClient wraps a genai client as a Provider
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Name identifies the provider in errors and logs
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Translate sends one chunk and returns the text inside the answer's <output> tags
func (g *GeminiClient) Translate(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", &errs.ProviderError{Provider: g.Name(), Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", &errs.ProviderError{Provider: g.Name(), Err: errors.New("empty response")}
	}
	return ExtractOutput(text), nil
}
