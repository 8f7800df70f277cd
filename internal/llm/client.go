package llm

import (
	"context"
	"fmt"
	"net/http"
)

// GenerateOptions are the per-call knobs shared by every backend.
type GenerateOptions struct {
	Tier        ModelTier
	Temperature float32
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent returns free text.
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// GenerateJSON returns a JSON document with any markdown wrapping removed.
	GenerateJSON(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// GetModel returns the model name used for a tier.
	GetModel(tier ModelTier) string
	// Provider identifies the backend.
	Provider() Provider
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a client for config.Provider.
func NewClient(ctx context.Context, config *Config, apiKey string, httpClient *http.Client) (Client, error) {
	if config == nil {
		config = DefaultPerplexityConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderPerplexity, ProviderOpenAI:
		return NewOpenAICompatClient(config, apiKey, httpClient)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}
