package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the default global
// limit and no endpoint overrides.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
	}
}

// PipelineEndpoints returns the limits for the pipeline invocation routes.
// Runs call out to the model provider, so they get their own, stricter bucket.
func PipelineEndpoints(limit int, window time.Duration, burst int) []EndpointConfig {
	if limit <= 0 {
		return nil
	}
	paths := []string{"/run-pipeline", "/run-pipeline/stream", "/run-graph"}
	out := make([]EndpointConfig, 0, len(paths))
	for _, p := range paths {
		out = append(out, EndpointConfig{Path: p, Method: "POST", Limit: limit, Window: window, Burst: burst})
	}
	return out
}

// IPSet builds a lookup set from a list of addresses, ignoring blanks.
func IPSet(ips []string) map[string]bool {
	result := make(map[string]bool, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
