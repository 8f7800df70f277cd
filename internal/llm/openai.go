package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 30 * time.Second

// OpenAICompatClient talks to any chat-completions endpoint with the OpenAI
// request shape. Perplexity and OpenAI differ only in base URL and model.
type OpenAICompatClient struct {
	config     *Config
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// NewOpenAICompatClient creates a client. A nil httpClient gets one with
// DefaultRequestTimeout.
func NewOpenAICompatClient(config *Config, apiKey string, httpClient *http.Client) (*OpenAICompatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultPerplexityConfig()
	}
	if config.BaseURL == "" {
		config = config.clone()
		config.BaseURL = DefaultConfig(config.Provider).BaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &OpenAICompatClient{
		config:     config,
		apiKey:     apiKey,
		httpClient: httpClient,
		maxRetries: 2,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// GenerateContent returns the first choice's text.
func (c *OpenAICompatClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return c.complete(ctx, prompt, opts, false)
}

// GenerateJSON returns the first choice's text with code fences and
// surrounding prose stripped. OpenAI is additionally asked for json_object
// output; Perplexity does not accept that format.
func (c *OpenAICompatClient) GenerateJSON(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	text, err := c.complete(ctx, prompt, opts, c.config.Provider == ProviderOpenAI)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *OpenAICompatClient) complete(ctx context.Context, prompt string, opts GenerateOptions, jsonMode bool) (string, error) {
	model := c.config.GetModel(opts.Tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", opts.Tier)
	}
	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, lastDelay(lastErr, attempt)); err != nil {
				return "", err
			}
		}
		text, err := c.do(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() {
			return "", err
		}
	}
	return "", lastErr
}

func (c *OpenAICompatClient) do(ctx context.Context, payload []byte) (string, error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.config.Provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s response: %w", c.config.Provider, err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Provider: c.config.Provider, StatusCode: resp.StatusCode}
		if decodeErr == nil && out.Error != nil {
			apiErr.Message = out.Error.Message
		}
		if ra, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
			return "", &retryAfterError{APIError: apiErr, after: time.Duration(ra) * time.Second}
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", c.config.Provider, decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", c.config.Provider)
	}
	return out.Choices[0].Message.Content, nil
}

// retryAfterError carries a server-provided Retry-After hint.
type retryAfterError struct {
	*APIError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.APIError }

// GetModel returns the model name for a tier.
func (c *OpenAICompatClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Provider implements Client.
func (c *OpenAICompatClient) Provider() Provider { return c.config.Provider }

// Close is a no-op; the HTTP client owns no per-instance resources.
func (c *OpenAICompatClient) Close() error { return nil }

func lastDelay(err error, attempt int) time.Duration {
	var ra *retryAfterError
	if errors.As(err, &ra) && ra.after > 0 {
		return min(ra.after, 5*time.Second)
	}
	d := 200 * time.Millisecond << (attempt - 1)
	return min(d, 5*time.Second)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
