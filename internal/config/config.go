// Package config provides configuration loading and validation for the
// service and the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/moderation"
)

// Defaults applied when the environment leaves a value unset.
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8000
	DefaultGraphTimeout  = 30 * time.Second
	DefaultMaxCandidates = 100
	DefaultBackendAPIURL = "http://localhost:5001"
	DefaultCacheTTL      = 5 * time.Minute
)

// Config is the process configuration. It is read once at start-up and
// never mutated afterwards.
type Config struct {
	Host      string `yaml:"host" validate:"required"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	GraphTimeout  time.Duration `yaml:"graph_timeout" validate:"gt=0"`
	MaxCandidates int           `yaml:"max_candidates" validate:"min=1,max=1000"`
	BackendAPIURL string        `yaml:"backend_api_url" validate:"required,url"`

	DatabaseURL string        `yaml:"-"`
	RedisURL    string        `yaml:"-"`
	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"gte=0"`

	LLM     llm.Settings `yaml:"-" validate:"-"`
	Service ServiceAuth  `yaml:"-"`

	CORSOrigins []string          `yaml:"cors_origins" validate:"dive,required"`
	RateLimit   RateLimit         `yaml:"rate_limit"`
	Moderation  moderation.Config `yaml:"moderation" validate:"-"`
}

// ServiceAuth holds the credentials accepted on the invocation surface. Any
// one of them enables bearer authentication; none leaves it open.
type ServiceAuth struct {
	Token     string `yaml:"-"`
	TokenHash string `yaml:"-"`
	JWT       *JWTConfig
}

// Enabled reports whether any credential is configured.
func (a ServiceAuth) Enabled() bool {
	return a.Token != "" || a.TokenHash != "" || a.JWT != nil
}

// RateLimit configures the token-bucket limiter on the HTTP surface.
type RateLimit struct {
	Enabled         bool          `yaml:"enabled"`
	DefaultLimit    int           `yaml:"default_limit" validate:"gte=0"`
	DefaultWindow   time.Duration `yaml:"default_window" validate:"gte=0"`
	PipelineLimit   int           `yaml:"pipeline_limit" validate:"gte=0"`
	PipelineWindow  time.Duration `yaml:"pipeline_window" validate:"gte=0"`
	PipelineBurst   int           `yaml:"pipeline_burst" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gte=0"`
	Whitelist       []string      `yaml:"whitelist"`
	Blacklist       []string      `yaml:"blacklist"`
}

// DefaultRateLimit returns the limits used when nothing is configured.
func DefaultRateLimit() RateLimit {
	return RateLimit{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		PipelineLimit:   120,
		PipelineWindow:  time.Minute,
		PipelineBurst:   20,
		CleanupInterval: 5 * time.Minute,
	}
}

// Default returns a configuration with every default applied and no
// credentials.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		LogFormat:     "text",
		GraphTimeout:  DefaultGraphTimeout,
		MaxCandidates: DefaultMaxCandidates,
		BackendAPIURL: DefaultBackendAPIURL,
		CacheTTL:      DefaultCacheTTL,
		CORSOrigins:   []string{"*"},
		RateLimit:     DefaultRateLimit(),
		Moderation:    moderation.DefaultConfig(),
	}
}

// Load builds the configuration from the environment. When CONFIG_FILE is
// set, the YAML file it names is applied first and the environment wins
// over it. The result is validated.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := &envReader{}

	c.Host = e.String("HOST", c.Host)
	c.Port = e.Int("PORT", c.Port)
	c.Debug = e.Bool("DEBUG", c.Debug)
	c.LogFormat = strings.ToLower(e.String("LOG_FORMAT", c.LogFormat))

	c.GraphTimeout = e.Seconds("GRAPH_TIMEOUT", c.GraphTimeout)
	c.MaxCandidates = e.Int("MAX_CANDIDATES", c.MaxCandidates)
	c.BackendAPIURL = strings.TrimRight(e.String("BACKEND_API_URL", c.BackendAPIURL), "/")
	c.DatabaseURL = e.String("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = e.String("REDIS_URL", c.RedisURL)
	c.CacheTTL = e.Duration("CACHE_TTL", c.CacheTTL)

	c.LLM = llm.Settings{
		PerplexityAPIKey: e.String("PERPLEXITY_API_KEY", ""),
		PerplexityModel:  e.String("PERPLEXITY_MODEL", "sonar"),
		OpenAIAPIKey:     e.String("OPENAI_API_KEY", ""),
		OpenAIModel:      e.String("OPENAI_MODEL", "gpt-3.5-turbo"),
		GeminiAPIKey:     e.String("GEMINI_API_KEY", ""),
		GeminiModel:      e.String("GEMINI_MODEL", "gemini-2.5-flash"),
		Timeout:          e.Seconds("LLM_TIMEOUT", 0),
	}

	c.Service.Token = e.String("AI_SERVICE_TOKEN", "")
	c.Service.TokenHash = e.String("AI_SERVICE_TOKEN_HASH", "")
	if secret := e.String("AI_SERVICE_JWT_SECRET", ""); secret != "" {
		jwtCfg := &JWTConfig{
			Secret:          secret,
			Issuer:          e.String("AI_SERVICE_JWT_ISSUER", DefaultJWTIssuer),
			ExpirationHours: e.Int("AI_SERVICE_JWT_EXPIRATION_HOURS", DefaultJWTExpirationHours),
		}
		if err := jwtCfg.normalize(); err != nil {
			e.errs = append(e.errs, err)
		} else {
			c.Service.JWT = jwtCfg
		}
	}

	rl := &c.RateLimit
	rl.Enabled = e.Bool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.DefaultLimit = e.Int("RATE_LIMIT_DEFAULT_LIMIT", rl.DefaultLimit)
	rl.DefaultWindow = e.Duration("RATE_LIMIT_DEFAULT_WINDOW", rl.DefaultWindow)
	rl.PipelineLimit = e.Int("RATE_LIMIT_PIPELINE_LIMIT", rl.PipelineLimit)
	rl.PipelineWindow = e.Duration("RATE_LIMIT_PIPELINE_WINDOW", rl.PipelineWindow)
	rl.PipelineBurst = e.Int("RATE_LIMIT_PIPELINE_BURST", rl.PipelineBurst)
	rl.CleanupInterval = e.Duration("RATE_LIMIT_CLEANUP_INTERVAL", rl.CleanupInterval)
	rl.Whitelist = e.List("RATE_LIMIT_WHITELIST", rl.Whitelist)
	rl.Blacklist = e.List("RATE_LIMIT_BLACKLIST", rl.Blacklist)

	c.CORSOrigins = e.List("CORS_ORIGINS", c.CORSOrigins)

	return errors.Join(e.errs...)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: %s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := moderation.Compile(c.Moderation); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
