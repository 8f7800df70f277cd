package ratelimit

import (
	"net/http"
	"strings"
)

// probes are never limited.
var probes = map[string]bool{"/health": true, "/": true}

// MatchEndpoint returns the endpoint configuration for a request, or nil to
// use the global limit. An exact path wins over a prefix; configured paths
// ending in "/" match every path below them. Probe routes get a zero-limit
// configuration, which the limiter treats as unlimited.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodGet && probes[path] {
		return &EndpointConfig{Path: path, Method: method}
	}

	var prefix *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if prefix == nil && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			prefix = c
		}
	}
	return prefix
}
