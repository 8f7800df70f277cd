package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"time"
)

// Run executes the graph from its entry stage until the finalize stage has
// run. Once a stage records a failure, every remaining stage except finalize
// is skipped. No stage runs twice in one execution.
//
// The returned error is nil for every business outcome, failed or not. It is
// an *ExecutionFault when a stage panics, returns an error, clears a recorded
// failure, or routes to an undeclared target, and the context error when ctx
// is done between stages.
func (g *Graph[S]) Run(ctx context.Context, initial S, observers ...Observer) (S, error) {
	obs := g.observers
	if len(observers) > 0 {
		obs = append(slices.Clone(obs), observers...)
	}
	emit := func(e ProgressEvent) {
		e.Pipeline = g.name
		for _, o := range obs {
			o.OnEvent(e)
		}
	}

	start := time.Now()
	state := initial
	current := g.entry
	visited := make(map[string]bool, len(g.order))

	if state.Failure() != "" && current != g.finalize {
		emit(ProgressEvent{Type: EventShortCircuit, Stage: current, Next: g.finalize, Error: state.Failure()})
		current = g.finalize
	}

	fault := func(stage string, cause error, stack []byte) (S, error) {
		f := &ExecutionFault{Pipeline: g.name, Stage: stage, Cause: cause, Stack: stack}
		emit(ProgressEvent{Type: EventRunFault, Stage: stage, Elapsed: time.Since(start), Fault: f})
		return state, f
	}

	for {
		if err := ctx.Err(); err != nil {
			emit(ProgressEvent{Type: EventRunFault, Stage: current, Elapsed: time.Since(start), Fault: err})
			return state, fmt.Errorf("pipeline %s: before stage %s: %w", g.name, current, err)
		}
		if visited[current] {
			return fault(current, errors.New("stage visited twice"), nil)
		}
		visited[current] = true

		emit(ProgressEvent{Type: EventStageEnter, Stage: current})
		stageStart := time.Now()
		priorFailure := state.Failure()

		next, stack, err := g.invoke(ctx, current, state)
		if err != nil {
			return fault(current, err, stack)
		}
		if priorFailure != "" && next.Failure() == "" {
			return fault(current, fmt.Errorf("stage cleared recorded failure %q", priorFailure), nil)
		}
		state = next
		emit(ProgressEvent{Type: EventStageExit, Stage: current, Elapsed: time.Since(stageStart), Error: state.Failure()})

		if current == g.finalize {
			emit(ProgressEvent{Type: EventRunComplete, Stage: current, Elapsed: time.Since(start), Error: state.Failure()})
			return state, nil
		}

		if state.Failure() != "" {
			emit(ProgressEvent{Type: EventShortCircuit, Stage: current, Next: g.finalize, Error: state.Failure()})
			current = g.finalize
			continue
		}

		target, err := g.route(current, state)
		if err != nil {
			return fault(current, err, nil)
		}
		emit(ProgressEvent{Type: EventTransition, Stage: current, Next: target})
		current = target
	}
}

// invoke runs one stage, converting a panic into an error with its stack.
func (g *Graph[S]) invoke(ctx context.Context, name string, state S) (out S, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = state
			stack = debug.Stack()
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	out, err = g.stages[name].Run(ctx, state)
	return out, nil, err
}

func (g *Graph[S]) route(from string, state S) (string, error) {
	if to, ok := g.edges[from]; ok {
		return to, nil
	}
	b := g.branches[from]
	target := b.Route(state)
	if !slices.Contains(b.Targets, target) {
		return "", fmt.Errorf("routing returned undeclared target %q (declared %v)", target, b.Targets)
	}
	return target, nil
}
