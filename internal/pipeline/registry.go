package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout is the wall-clock budget for one pipeline run.
const DefaultTimeout = 30 * time.Second

// Registry maps pipeline names to runners and enforces the run timeout.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
	timeout time.Duration
}

// NewRegistry creates an empty registry. A non-positive timeout selects
// DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		runners: make(map[string]Runner),
		timeout: timeout,
	}
}

// Register adds a runner. Names must be unique.
func (r *Registry) Register(runner Runner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := runner.Name()
	if _, exists := r.runners[name]; exists {
		return fmt.Errorf("pipeline %q already registered", name)
	}
	r.runners[name] = runner
	return nil
}

// Get returns the runner registered under name.
func (r *Registry) Get(name string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
	}
	return runner, nil
}

// Names returns the registered pipeline names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Timeout returns the per-run budget.
func (r *Registry) Timeout() time.Duration { return r.timeout }

// Run executes the named pipeline within the registry's timeout. A run that
// overruns returns a *TimeoutError; the stage in flight keeps its context,
// which is cancelled, but its result is discarded.
func (r *Registry) Run(ctx context.Context, name string, input map[string]any, observers ...Observer) (map[string]any, error) {
	runner, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		out map[string]any
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runner.RunJSON(runCtx, input, observers...)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Pipeline: name, Budget: r.timeout}
		}
		return res.out, res.err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TimeoutError{Pipeline: name, Budget: r.timeout}
	}
}
