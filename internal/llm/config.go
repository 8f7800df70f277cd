// Package llm is the augmentation gateway: provider configuration, client
// backends, and the typed use-case calls the pipelines make.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for classification and short summaries.
	TierLite ModelTier = "lite"
	// TierStandard is for reasoning over profiles and recommendations.
	TierStandard ModelTier = "standard"
	// TierAdvanced is unused by the built-in use cases but may be mapped in config.
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

const (
	// ProviderPerplexity is the primary provider (OpenAI-compatible API).
	ProviderPerplexity Provider = "perplexity"
	// ProviderOpenAI is the secondary provider.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the tertiary provider.
	ProviderGemini Provider = "gemini"
	// ProviderNone means no credential is configured.
	ProviderNone Provider = "none"
)

// Default endpoints for the OpenAI-compatible providers.
const (
	PerplexityBaseURL = "https://api.perplexity.ai"
	OpenAIBaseURL     = "https://api.openai.com/v1"
)

// Config holds the model configuration for one provider.
type Config struct {
	Provider Provider
	BaseURL  string
	Models   map[ModelTier]string
}

// DefaultConfig returns the defaults for a provider. Unknown providers get
// the Perplexity defaults.
func DefaultConfig(p Provider) *Config {
	switch p {
	case ProviderOpenAI:
		return DefaultOpenAIConfig()
	case ProviderGemini:
		return DefaultGeminiConfig()
	default:
		return DefaultPerplexityConfig()
	}
}

// DefaultPerplexityConfig returns the Perplexity configuration.
func DefaultPerplexityConfig() *Config {
	return &Config{
		Provider: ProviderPerplexity,
		BaseURL:  PerplexityBaseURL,
		Models: map[ModelTier]string{
			TierLite:     "sonar",
			TierStandard: "sonar",
			TierAdvanced: "sonar-pro",
		},
	}
}

// DefaultOpenAIConfig returns the OpenAI configuration.
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		BaseURL:  OpenAIBaseURL,
		Models: map[ModelTier]string{
			TierLite:     "gpt-3.5-turbo",
			TierStandard: "gpt-3.5-turbo",
			TierAdvanced: "gpt-4o",
		},
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := c.clone()
	newConfig.Models[tier] = model
	return newConfig
}

// WithDefaultModel returns a new Config that uses model for the lite and
// standard tiers. Environment overrides such as PERPLEXITY_MODEL land here.
func (c *Config) WithDefaultModel(model string) *Config {
	newConfig := c.clone()
	if model == "" {
		return newConfig
	}
	newConfig.Models[TierLite] = model
	newConfig.Models[TierStandard] = model
	return newConfig
}

func (c *Config) clone() *Config {
	newConfig := &Config{
		Provider: c.Provider,
		BaseURL:  c.BaseURL,
		Models:   make(map[ModelTier]string, len(c.Models)),
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	return newConfig
}
