package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/pipeline"
)

type greetState struct {
	pipeline.Status
	Name     string `json:"name"`
	Token    string `json:"token,omitempty"`
	Greeting string `json:"greeting,omitempty"`
}

func greetGraph(t *testing.T, name string, stage pipeline.StageFunc[greetState]) *pipeline.Graph[greetState] {
	t.Helper()
	g, err := pipeline.New(pipeline.Definition[greetState]{
		Name:     name,
		Entry:    "greet",
		Finalize: "finalize",
		Stages: []pipeline.Stage[greetState]{
			{Name: "greet", Run: stage},
			{Name: "finalize", Run: func(_ context.Context, s greetState) (greetState, error) { return s, nil }},
		},
		Edges: []pipeline.Edge{{From: "greet", To: "finalize"}},
	})
	require.NoError(t, err)
	return g
}

func testRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()
	reg := pipeline.NewRegistry(200 * time.Millisecond)

	greet := func(_ context.Context, s greetState) (greetState, error) {
		if s.Name == "" {
			s.Fail("name is required")
			return s, nil
		}
		s.Greeting = "hello " + s.Name
		return s, nil
	}
	slow := func(ctx context.Context, s greetState) (greetState, error) {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return s, ctx.Err()
		}
		return s, nil
	}
	boom := func(context.Context, greetState) (greetState, error) {
		return greetState{}, errors.New("connection pool exhausted at 10.1.2.3")
	}
	guard := func(s greetState) error {
		if s.Token == "" {
			return errors.New("guarded requires token in input")
		}
		return nil
	}

	require.NoError(t, reg.Register(pipeline.Bind(greetGraph(t, "greet", greet), nil)))
	require.NoError(t, reg.Register(pipeline.Bind(greetGraph(t, "slow", slow), nil)))
	require.NoError(t, reg.Register(pipeline.Bind(greetGraph(t, "boom", boom), nil)))
	require.NoError(t, reg.Register(pipeline.Bind(greetGraph(t, "guarded", greet), guard)))
	return reg
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Registry:    testRegistry(t),
		RateLimit:   config.RateLimit{Enabled: false},
		CORSOrigins: []string{"*"},
		Provider:    "perplexity",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) RunResponse {
	t.Helper()
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthAndIndex(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec = do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var index map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &index))
	assert.Equal(t, ServiceName, index["service"])
	assert.Equal(t, "perplexity", index["provider"])
	assert.Equal(t, []any{"boom", "greet", "guarded", "slow"}, index["pipelines"])

	rec = do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", "", "X-Request-ID", "req-42")
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRunPipeline(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantError   string
		wantData    map[string]any
	}{
		{
			name:        "success",
			body:        `{"pipeline_name":"greet","input":{"name":"ada"}}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantData:    map[string]any{"name": "ada", "greeting": "hello ada"},
		},
		{
			name:       "business error stays in the envelope",
			body:       `{"pipeline_name":"greet","input":{}}`,
			wantStatus: http.StatusOK,
			wantError:  "name is required",
			wantData:   map[string]any{"name": "", "error": "name is required"},
		},
		{
			name:       "unknown pipeline",
			body:       `{"pipeline_name":"nope","input":{}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  `Unknown pipeline: "nope". Valid options: boom, greet, guarded, slow`,
			wantData:   map[string]any{},
		},
		{
			name:       "missing pipeline name",
			body:       `{"input":{}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation error: pipeline_name - is required",
			wantData:   map[string]any{},
		},
		{
			name:       "precheck rejects input",
			body:       `{"pipeline_name":"guarded","input":{"name":"ada"}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "guarded requires token in input",
			wantData:   map[string]any{},
		},
		{
			name:       "undecodable input",
			body:       `{"pipeline_name":"greet","input":{"name":7}}`,
			wantStatus: http.StatusBadRequest,
			wantData:   map[string]any{},
		},
		{
			name:       "fault is not leaked",
			body:       `{"pipeline_name":"boom","input":{}}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
			wantData:   map[string]any{},
		},
		{
			name:       "timeout",
			body:       `{"pipeline_name":"slow","input":{}}`,
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "Pipeline execution timed out after 200ms",
			wantData:   map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/run-pipeline", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantSuccess, resp.Success)
			assert.Equal(t, tt.wantData, resp.Data)
			if tt.wantSuccess {
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, *resp.Error)
			}
		})
	}
}

func TestRunPipeline_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/run-pipeline", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "Invalid request body")
}

func TestRunGraph_Legacy(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/run-graph", `{"graph":"greet","input":{"name":"bo"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "greet", resp.Graph)
	assert.Equal(t, "greet", resp.PipelineName)
	assert.Equal(t, "hello bo", resp.Data["greeting"])
}

func TestRunPipeline_ServiceToken(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.Auth = config.ServiceAuth{Token: "s3cret"}
	})
	body := `{"pipeline_name":"greet","input":{"name":"ada"}}`

	rec := do(t, s, http.MethodPost, "/run-pipeline", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/run-pipeline", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/run-pipeline", body, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Probes stay open.
	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunPipeline_ServiceJWT(t *testing.T) {
	jwtCfg, err := config.NewJWTConfig("test-secret-key-for-service-tokens", "", 1)
	require.NoError(t, err)
	token, err := NewJWTService(jwtCfg).GenerateToken("campus-backend")
	require.NoError(t, err)

	s := newTestServer(t, func(c *Config) {
		c.Auth = config.ServiceAuth{JWT: jwtCfg}
	})
	rec := do(t, s, http.MethodPost, "/run-graph", `{"graph":"greet","input":{"name":"ada"}}`, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPipelines(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/pipelines", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pipelines []pipeline.Description `json:"pipelines"`
		Timeout   float64                `json:"timeout_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pipelines, 4)
	assert.Equal(t, "boom", body.Pipelines[0].Name)
	assert.Equal(t, "greet", body.Pipelines[0].Entry)
	assert.InDelta(t, 0.2, body.Timeout, 1e-9)
}

func TestRunStream(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/run-pipeline/stream", `{"pipeline_name":"greet","input":{"name":"ada"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: stage\n")
	assert.Contains(t, body, `"stage":"greet"`)
	assert.Contains(t, body, "event: result\n")
	assert.Contains(t, body, `"greeting":"hello ada"`)
	assert.True(t, strings.Index(body, "event: stage") < strings.Index(body, "event: result"))
}

func TestRunStream_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/run-pipeline/stream", `{"pipeline_name":"nope","input":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, s, http.MethodPost, "/run-pipeline/stream", `{"pipeline_name":"boom","input":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, `"status_code":500`)
	assert.NotContains(t, body, "10.1.2.3")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.RateLimit = config.RateLimit{
			Enabled:        true,
			DefaultLimit:   100,
			DefaultWindow:  time.Minute,
			PipelineLimit:  1,
			PipelineWindow: time.Hour,
			PipelineBurst:  1,
		}
	})
	body := `{"pipeline_name":"greet","input":{"name":"ada"}}`

	rec := do(t, s, http.MethodPost, "/run-pipeline", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = do(t, s, http.MethodPost, "/run-pipeline", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])

	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.CORSOrigins = []string{"https://campus.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/run-pipeline", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://campus.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://campus.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
