package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/campus-agents/internal/pipeline"
)

// RunRequest is the body of POST /run-pipeline.
type RunRequest struct {
	PipelineName string         `json:"pipeline_name" validate:"required"`
	Input        map[string]any `json:"input"`
}

// GraphRequest is the body of the legacy POST /run-graph route.
type GraphRequest struct {
	Graph string         `json:"graph" validate:"required"`
	Input map[string]any `json:"input"`
}

// RunResponse is the envelope returned by every run route.
type RunResponse struct {
	Success      bool           `json:"success"`
	PipelineName string         `json:"pipeline_name"`
	Graph        string         `json:"graph,omitempty"`
	Data         map[string]any `json:"data"`
	Error        *string        `json:"error"`
}

func newRunResponse(name string, data map[string]any, message string) RunResponse {
	if data == nil {
		data = map[string]any{}
	}
	resp := RunResponse{
		Success:      message == "",
		PipelineName: name,
		Data:         data,
	}
	if message != "" {
		resp.Error = &message
	}
	return resp
}

// handleRunPipeline executes one pipeline and returns its final state.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		s.jsonResponse(w, HTTPStatus(err), newRunResponse(req.PipelineName, nil, publicMessage(err, nil)))
		return
	}
	status, resp := s.execute(r, req.PipelineName, req.Input)
	s.jsonResponse(w, status, resp)
}

// handleRunGraph is the legacy spelling of /run-pipeline.
func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		s.jsonResponse(w, HTTPStatus(err), newRunResponse(req.Graph, nil, publicMessage(err, nil)))
		return
	}
	status, resp := s.execute(r, req.Graph, req.Input)
	resp.Graph = req.Graph
	s.jsonResponse(w, status, resp)
}

// execute runs a pipeline under the registry timeout. A run whose final
// state carries an error is still a 200 with success=false; only request
// errors, timeouts and faults change the status code.
func (s *Server) execute(r *http.Request, name string, input map[string]any, observers ...pipeline.Observer) (int, RunResponse) {
	logger := s.logger.With("pipeline", name, "request_id", requestID(r))
	start := time.Now()

	out, err := s.registry.Run(r.Context(), name, input, observers...)
	elapsed := time.Since(start)
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("pipeline run failed", "error", err, "elapsed", elapsed)
		} else {
			logger.Warn("pipeline run rejected", "error", err, "elapsed", elapsed)
		}
		return status, newRunResponse(name, nil, publicMessage(err, s.registry.Names()))
	}

	message, _ := out["error"].(string)
	logger.Info("pipeline run complete",
		"success", message == "",
		"input_keys", slices.Sorted(maps.Keys(input)),
		"elapsed", elapsed,
	)
	return http.StatusOK, newRunResponse(name, out, message)
}

// decodeRequest reads and validates a JSON body.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Message: "Invalid request body: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return extractValidationError(err)
	}
	return nil
}

// extractValidationError reports the first failed field.
func extractValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Tag() == "required" {
			msg = "is required"
		}
		return &ErrValidation{Field: fe.Field(), Message: msg}
	}
	return &ErrValidation{Message: err.Error()}
}

// handleListPipelines describes every registered pipeline.
func (s *Server) handleListPipelines(w http.ResponseWriter, _ *http.Request) {
	names := s.registry.Names()
	descriptions := make([]pipeline.Description, 0, len(names))
	for _, name := range names {
		runner, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		descriptions = append(descriptions, runner.Describe())
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"pipelines":       descriptions,
		"timeout_seconds": s.registry.Timeout().Seconds(),
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleIndex describes the service.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	provider := s.provider
	if provider == "" {
		provider = "none"
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service":   ServiceName,
		"version":   Version,
		"health":    "/health",
		"pipelines": s.registry.Names(),
		"provider":  provider,
	})
}
