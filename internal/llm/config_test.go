package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		provider Provider
		want     Provider
		model    string
		baseURL  string
	}{
		{ProviderPerplexity, ProviderPerplexity, "sonar", PerplexityBaseURL},
		{ProviderOpenAI, ProviderOpenAI, "gpt-3.5-turbo", OpenAIBaseURL},
		{ProviderGemini, ProviderGemini, "gemini-2.5-flash", ""},
		{Provider("mystery"), ProviderPerplexity, "sonar", PerplexityBaseURL},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			cfg := DefaultConfig(tt.provider)
			assert.Equal(t, tt.want, cfg.Provider)
			assert.Equal(t, tt.model, cfg.GetModel(TierStandard))
			assert.Equal(t, tt.baseURL, cfg.BaseURL)
		})
	}
}

func TestGetModel_Fallback(t *testing.T) {
	cfg := &Config{Models: map[ModelTier]string{TierStandard: "std"}}
	assert.Equal(t, "std", cfg.GetModel(TierAdvanced))
	assert.Equal(t, "std", cfg.GetModel(TierLite))

	cfg = &Config{Models: map[ModelTier]string{TierLite: "lite"}}
	assert.Equal(t, "lite", cfg.GetModel(TierAdvanced))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	cfg := &Config{Models: map[ModelTier]string{}}
	assert.Empty(t, cfg.GetModel(TierStandard))
}

func TestWithModel(t *testing.T) {
	original := DefaultGeminiConfig()
	modified := original.WithModel(TierLite, "custom-model")

	assert.Equal(t, "custom-model", modified.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash-lite", original.GetModel(TierLite))
	assert.Equal(t, original.GetModel(TierStandard), modified.GetModel(TierStandard))
}

func TestWithDefaultModel(t *testing.T) {
	cfg := DefaultPerplexityConfig().WithDefaultModel("sonar-reasoning")
	assert.Equal(t, "sonar-reasoning", cfg.GetModel(TierLite))
	assert.Equal(t, "sonar-reasoning", cfg.GetModel(TierStandard))
	assert.Equal(t, "sonar-pro", cfg.GetModel(TierAdvanced))

	unchanged := DefaultOpenAIConfig().WithDefaultModel("")
	assert.Equal(t, "gpt-3.5-turbo", unchanged.GetModel(TierStandard))
}
