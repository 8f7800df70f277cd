package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonathan/campus-agents/internal/prompts"
	"github.com/jonathan/campus-agents/internal/schemas"
)

// ErrNotConfigured is returned by every call when no provider credential is
// set. The gateway never attempts a request in that state.
var ErrNotConfigured = errors.New("no LLM provider configured: set PERPLEXITY_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY")

// Augmenter produces a schema-valid JSON document for a use case.
type Augmenter interface {
	Complete(ctx context.Context, uc UseCase, data map[string]string) (string, error)
}

// AugmenterFunc adapts a function to Augmenter.
type AugmenterFunc func(ctx context.Context, uc UseCase, data map[string]string) (string, error)

// Complete implements Augmenter.
func (f AugmenterFunc) Complete(ctx context.Context, uc UseCase, data map[string]string) (string, error) {
	return f(ctx, uc, data)
}

// Settings carries provider credentials and model overrides.
type Settings struct {
	PerplexityAPIKey string
	PerplexityModel  string
	OpenAIAPIKey     string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string
	// Timeout bounds one augmentation call. Zero selects DefaultRequestTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// SelectProvider applies primary-first, secondary-fallback selection:
// Perplexity, then OpenAI, then Gemini, each only when its key is set.
func SelectProvider(s Settings) (Provider, *Config, string) {
	switch {
	case s.PerplexityAPIKey != "":
		return ProviderPerplexity, DefaultPerplexityConfig().WithDefaultModel(s.PerplexityModel), s.PerplexityAPIKey
	case s.OpenAIAPIKey != "":
		return ProviderOpenAI, DefaultOpenAIConfig().WithDefaultModel(s.OpenAIModel), s.OpenAIAPIKey
	case s.GeminiAPIKey != "":
		return ProviderGemini, DefaultGeminiConfig().WithDefaultModel(s.GeminiModel), s.GeminiAPIKey
	}
	return ProviderNone, nil, ""
}

// Gateway renders use-case prompts, calls the selected client, and accepts
// only payloads that match the use case's schema.
type Gateway struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway selects a provider from settings and builds its client. With no
// credentials it returns a gateway whose calls fail with ErrNotConfigured.
func NewGateway(ctx context.Context, s Settings, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider, cfg, key := SelectProvider(s)
	g := &Gateway{timeout: s.Timeout, logger: logger}
	if g.timeout <= 0 {
		g.timeout = DefaultRequestTimeout
	}

	switch provider {
	case ProviderNone:
		logger.Warn("no LLM provider configured; augmentation will use fallbacks")
		return g, nil
	case ProviderPerplexity:
		logger.Info("using Perplexity as LLM provider (primary)", "model", cfg.GetModel(TierStandard))
	case ProviderOpenAI:
		logger.Warn("Perplexity API key not set; falling back to OpenAI", "model", cfg.GetModel(TierStandard))
	case ProviderGemini:
		logger.Warn("Perplexity and OpenAI keys not set; falling back to Gemini", "model", cfg.GetModel(TierStandard))
	}

	client, err := NewClient(ctx, cfg, key, s.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	g.client = client
	return g, nil
}

// NewGatewayWithClient wraps an existing client.
func NewGatewayWithClient(client Client, timeout time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Gateway{client: client, timeout: timeout, logger: logger}
}

// Provider reports the active provider.
func (g *Gateway) Provider() Provider {
	if g == nil || g.client == nil {
		return ProviderNone
	}
	return g.client.Provider()
}

// Model reports the standard-tier model of the active provider.
func (g *Gateway) Model() string {
	if g == nil || g.client == nil {
		return ""
	}
	return g.client.GetModel(TierStandard)
}

// Complete implements Augmenter.
func (g *Gateway) Complete(ctx context.Context, uc UseCase, data map[string]string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNotConfigured
	}

	prompt, err := prompts.Render(uc.PromptFile, uc.PromptKey, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", uc.Name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.client.GenerateJSON(callCtx, prompt, GenerateOptions{Tier: uc.Tier, Temperature: uc.Temperature})
	if err != nil {
		return "", fmt.Errorf("%s: %w", uc.Name, err)
	}
	if err := schemas.Validate(uc.Schema, text); err != nil {
		return "", fmt.Errorf("%s: response rejected: %w", uc.Name, err)
	}
	g.logger.Debug("augmentation complete",
		"use_case", uc.Name,
		"provider", g.client.Provider(),
		"duration", time.Since(start))
	return text, nil
}

// Close releases the underlying client.
func (g *Gateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
