// ABOUTME: OpenAI provider for chunk translation via chat completions
// ABOUTME: Uses gpt-4o-mini by default; model, base URL and temperature are configurable
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harper/transdoc/internal/errs"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultTemperature keeps translations close to literal
	DefaultTemperature = 0.2
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey      string
	ChatModel   string
	BaseURL     string
	Temperature float32
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:      apiKey,
		ChatModel:   DefaultChatModel,
		Temperature: DefaultTemperature,
	}
}

// OpenAIClient wraps the OpenAI API client as a Provider
type OpenAIClient struct {
	client      *openai.Client
	chatModel   string
	temperature float32
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(cfg *ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.ChatModel
	if model == "" {
		model = DefaultChatModel
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		chatModel:   model,
		temperature: cfg.Temperature,
	}, nil
}

// Name identifies the provider in errors and logs
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Translate sends one chunk and returns the text inside the answer's <output> tags
func (c *OpenAIClient) Translate(ctx context.Context, req Request) (string, error) {
	system, user := BuildPrompt(req)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", &errs.ProviderError{Provider: c.Name(), Err: classifyOpenAI(err)}
	}

	if len(resp.Choices) == 0 {
		return "", &errs.ProviderError{Provider: c.Name(), Err: errors.New("no completion choices returned")}
	}

	return ExtractOutput(resp.Choices[0].Message.Content), nil
}

// classifyOpenAI marks client errors other than rate limiting as permanent
func classifyOpenAI(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}
