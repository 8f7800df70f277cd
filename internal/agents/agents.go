// Package agents assembles the pipeline registry from process configuration:
// the document store, the augmentation gateway, the chat API client and the
// moderation rules, shared by the HTTP server and the CLI.
package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonathan/campus-agents/internal/chatapi"
	"github.com/jonathan/campus-agents/internal/chatassist"
	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/help"
	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/matching"
	"github.com/jonathan/campus-agents/internal/moderation"
	"github.com/jonathan/campus-agents/internal/onboarding"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/recommend"
	"github.com/jonathan/campus-agents/internal/safety"
	"github.com/jonathan/campus-agents/internal/store"
)

// Deps are the collaborators every pipeline is built from.
type Deps struct {
	Campus        *store.Campus
	Augmenter     llm.Augmenter
	Chat          chatassist.Backend
	Rules         *moderation.Rules
	MaxCandidates int
	Timeout       time.Duration
	Logger        *slog.Logger
}

// NewRegistry builds and registers every pipeline. Each one logs its stage
// events through a logger tagged with its name.
func NewRegistry(d Deps) (*pipeline.Registry, error) {
	if d.Campus == nil {
		return nil, errors.New("agents: a campus store is required")
	}
	rules := d.Rules
	if rules == nil {
		rules = moderation.Default()
	}
	maxCandidates := d.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = config.DefaultMaxCandidates
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = config.DefaultGraphTimeout
	}

	named := func(name string) *slog.Logger { return component(d.Logger, name) }
	observe := func(name string) pipeline.Option {
		return pipeline.WithObserver(pipeline.LogObserver{Logger: named(name)})
	}

	builders := []struct {
		name  string
		build func() (pipeline.Runner, error)
	}{
		{matching.Name, func() (pipeline.Runner, error) {
			return matching.New(d.Campus, d.Augmenter, maxCandidates, named(matching.Name)).Runner(observe(matching.Name))
		}},
		{safety.Name, func() (pipeline.Runner, error) {
			return safety.New(rules, d.Augmenter, named(safety.Name)).Runner(observe(safety.Name))
		}},
		{onboarding.Name, func() (pipeline.Runner, error) {
			return onboarding.New(d.Campus, d.Augmenter, named(onboarding.Name)).Runner(observe(onboarding.Name))
		}},
		{recommend.Name, func() (pipeline.Runner, error) {
			return recommend.New(d.Campus, d.Augmenter, named(recommend.Name)).Runner(observe(recommend.Name))
		}},
		{chatassist.Name, func() (pipeline.Runner, error) {
			return chatassist.New(d.Chat, d.Augmenter, named(chatassist.Name)).Runner(observe(chatassist.Name))
		}},
		{help.Name, func() (pipeline.Runner, error) {
			return help.New(d.Campus, d.Augmenter, named(help.Name)).Runner(observe(help.Name))
		}},
	}

	reg := pipeline.NewRegistry(timeout)
	for _, b := range builders {
		runner, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("failed to build %s pipeline: %w", b.name, err)
		}
		if err := reg.Register(runner); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Agents owns the registry and the resources behind it.
type Agents struct {
	Registry *pipeline.Registry
	Gateway  *llm.Gateway
	Store    store.Store

	closers []io.Closer
}

// Options adjust Open.
type Options struct {
	// Seed is JSON loaded into the in-memory store. It is ignored when a
	// database is configured.
	Seed io.Reader
	// Augmenter replaces the configured gateway.
	Augmenter llm.Augmenter
	// Logger is tagged per component. Nil uses the process default.
	Logger *slog.Logger
}

// Open connects the configured backends and builds the registry. Without
// DATABASE_URL the store is in-memory; with REDIS_URL profile and user reads
// go through a Redis cache.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Agents, error) {
	a := &Agents{}
	if err := a.open(ctx, cfg, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Agents) open(ctx context.Context, cfg *config.Config, opts Options) error {
	docs, err := a.openStore(ctx, cfg, opts.Seed, opts.Logger)
	if err != nil {
		return err
	}
	a.Store = docs

	augmenter := opts.Augmenter
	if augmenter == nil {
		gateway, err := llm.NewGateway(ctx, cfg.LLM, component(opts.Logger, "llm"))
		if err != nil {
			return err
		}
		a.Gateway = gateway
		a.closers = append(a.closers, gateway)
		augmenter = gateway
	}

	rules, err := moderation.Compile(cfg.Moderation)
	if err != nil {
		return err
	}

	a.Registry, err = NewRegistry(Deps{
		Campus:        store.NewCampus(docs),
		Augmenter:     augmenter,
		Chat:          chatapi.New(cfg.BackendAPIURL, nil),
		Rules:         rules,
		MaxCandidates: cfg.MaxCandidates,
		Timeout:       cfg.GraphTimeout,
		Logger:        opts.Logger,
	})
	return err
}

func (a *Agents) openStore(ctx context.Context, cfg *config.Config, seed io.Reader, base *slog.Logger) (store.Store, error) {
	logger := component(base, "store")
	var docs store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pg)
		docs = pg
		logger.Info("using postgres document store")
	} else {
		mem := store.NewMemory()
		if seed != nil {
			if err := mem.Seed(seed); err != nil {
				return nil, err
			}
		}
		docs = mem
		logger.Info("using in-memory document store")
	}

	if cfg.RedisURL == "" {
		return docs, nil
	}
	client, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, client)
	logger.Info("caching profile reads in redis", "ttl", cfg.CacheTTL)
	return store.NewCached(docs, client, cfg.CacheTTL, logger), nil
}

// component tags base with a component name, falling back to the process
// default logger.
func component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		return logging.New(name)
	}
	return base.With("component", name)
}

// Provider names the active augmentation provider.
func (a *Agents) Provider() string {
	if a.Gateway == nil {
		return "custom"
	}
	return string(a.Gateway.Provider())
}

// Close releases every backend in reverse order of opening.
func (a *Agents) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
