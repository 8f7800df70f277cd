// Package server provides the HTTP invocation surface for the campus
// agent pipelines.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/server/middleware"
	"github.com/jonathan/campus-agents/internal/server/ratelimit"
)

// ServiceName and Version are reported by the index route.
const (
	ServiceName = "CampusConnect AI Service"
	Version     = "1.0.0"
)

// maxBodyBytes bounds request bodies on the run routes.
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	registry    *pipeline.Registry
	rateLimiter *ratelimit.Limiter
	validator   *validator.Validate
	provider    string
	logger      *slog.Logger
}

// Config holds server configuration
type Config struct {
	Addr        string
	Registry    *pipeline.Registry
	Auth        config.ServiceAuth
	RateLimit   config.RateLimit
	CORSOrigins []string
	// Provider names the active augmentation provider for the index route.
	Provider string
	Logger   *slog.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("server requires a pipeline registry")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("server")
	}

	s := &Server{
		registry:    cfg.Registry,
		rateLimiter: ratelimit.NewLimiter(rateLimitConfig(cfg.RateLimit)),
		validator:   newValidator(),
		provider:    cfg.Provider,
		logger:      logger,
	}

	auth := middleware.AuthMiddleware(serviceValidator(cfg.Auth), logger)

	mux := http.NewServeMux()
	mux.Handle("POST /run-pipeline", auth(http.HandlerFunc(s.handleRunPipeline)))
	mux.Handle("POST /run-pipeline/stream", auth(http.HandlerFunc(s.handleRunStream)))
	mux.Handle("POST /run-graph", auth(http.HandlerFunc(s.handleRunGraph)))
	mux.HandleFunc("GET /pipelines", s.handleListPipelines)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.handler = s.withRequestMeta(s.withLogging(s.withCORS(cfg.CORSOrigins, s.withRateLimit(mux))))

	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", config.DefaultPort)
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Registry.Timeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func rateLimitConfig(rl config.RateLimit) *ratelimit.Config {
	return &ratelimit.Config{
		Enabled:         rl.Enabled,
		DefaultLimit:    rl.DefaultLimit,
		DefaultWindow:   rl.DefaultWindow,
		CleanupInterval: rl.CleanupInterval,
		Whitelist:       ratelimit.IPSet(rl.Whitelist),
		Blacklist:       ratelimit.IPSet(rl.Blacklist),
		EndpointConfigs: ratelimit.PipelineEndpoints(rl.PipelineLimit, rl.PipelineWindow, rl.PipelineBurst),
	}
}

// serviceValidator accepts any configured credential. It returns nil, which
// leaves the run routes open, when none is configured.
func serviceValidator(a config.ServiceAuth) middleware.TokenValidator {
	var validators middleware.AnyOf
	if a.Token != "" {
		validators = append(validators, middleware.StaticToken(a.Token))
	}
	if a.TokenHash != "" {
		validators = append(validators, middleware.HashedToken(a.TokenHash))
	}
	if a.JWT != nil {
		validators = append(validators, NewJWTService(a.JWT).AsTokenValidator())
	}
	if len(validators) == 0 {
		return nil
	}
	return validators
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr, "pipelines", s.registry.Names())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer s.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// responseWriter records the status and stamps X-Process-Time before the
// header is written.
type responseWriter struct {
	http.ResponseWriter
	start   time.Time
	status  int
	written bool
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.written {
		w.written = true
		w.status = status
		w.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 6, 64))
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush lets streaming handlers see an http.Flusher through the wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

// withRequestMeta assigns a request ID and times the request.
func (s *Server) withRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(&responseWriter{ResponseWriter: w, start: time.Now()}, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// withCORS adds CORS headers. "*" in origins allows every origin.
func (s *Server) withCORS(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Process-Time, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		status := http.StatusOK
		if rw, ok := w.(*responseWriter); ok && rw.written {
			status = rw.status
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"remote", r.RemoteAddr,
			"request_id", requestID(r),
			"elapsed", time.Since(start),
		)
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// extractClientID uses the IP address from RemoteAddr. X-Forwarded-For is
// not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"success":     false,
		"error":       "Rate limit exceeded. Please try again later.",
		"status_code": http.StatusTooManyRequests,
		"limit":       info.Limit,
		"remaining":   info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("rate limit exceeded", "client", s.extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
