package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// Runner is a pipeline with its state type erased, so pipelines with
// different state records can share one registry and one HTTP surface.
type Runner interface {
	Name() string
	Describe() Description
	RunJSON(ctx context.Context, input map[string]any, observers ...Observer) (map[string]any, error)
}

// InputError reports input that cannot become a pipeline state.
type InputError struct {
	Pipeline string
	Err      error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Pipeline, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// Bind wraps g as a Runner. Input maps are decoded into S through their JSON
// form. precheck, when non-nil, runs on the decoded state before execution
// and turns a rejected input into an InputError.
func Bind[S State](g *Graph[S], precheck func(S) error) Runner {
	return &boundGraph[S]{graph: g, precheck: precheck}
}

type boundGraph[S State] struct {
	graph    *Graph[S]
	precheck func(S) error
}

func (b *boundGraph[S]) Name() string { return b.graph.Name() }

func (b *boundGraph[S]) Describe() Description { return b.graph.Describe() }

func (b *boundGraph[S]) RunJSON(ctx context.Context, input map[string]any, observers ...Observer) (map[string]any, error) {
	state, err := Decode[S](input)
	if err != nil {
		return nil, &InputError{Pipeline: b.graph.Name(), Err: err}
	}
	if b.precheck != nil {
		if err := b.precheck(state); err != nil {
			return nil, &InputError{Pipeline: b.graph.Name(), Err: err}
		}
	}

	final, err := b.graph.Run(ctx, state, observers...)
	if err != nil {
		return nil, err
	}
	return Encode(final)
}

// Decode converts a generic input map into a state record.
func Decode[S any](input map[string]any) (S, error) {
	var state S
	if input == nil {
		input = map[string]any{}
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return state, fmt.Errorf("encode input: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("decode input: %w", err)
	}
	return state, nil
}

// Encode converts a state record into a generic map.
func Encode(state any) (map[string]any, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return out, nil
}
