// Package pipeline provides the stage-graph executor shared by every agent
// pipeline. A Graph is built once from a Definition, validated at
// construction, and then run any number of times concurrently.
package pipeline

import (
	"context"
	"fmt"
	"slices"
)

// StageFunc transforms the state. Returning a non-nil error is reserved for
// unexpected faults; business failures belong in the state's error field.
type StageFunc[S State] func(ctx context.Context, state S) (S, error)

// Stage is a named unit of pipeline logic.
type Stage[S State] struct {
	Name string
	Run  StageFunc[S]
}

// Edge is an unconditional transition.
type Edge struct {
	From string
	To   string
}

// Branch is a conditional transition. Route must be pure and must return one
// of Targets.
type Branch[S State] struct {
	From    string
	Targets []string
	Route   func(S) string
}

// Definition describes a pipeline's stages and transitions.
type Definition[S State] struct {
	Name     string
	Entry    string
	Finalize string
	Stages   []Stage[S]
	Edges    []Edge
	Branches []Branch[S]
}

// Graph is an immutable, validated pipeline.
type Graph[S State] struct {
	name      string
	entry     string
	finalize  string
	order     []string
	stages    map[string]Stage[S]
	edges     map[string]string
	branches  map[string]Branch[S]
	observers []Observer
}

// Option configures a Graph during construction.
type Option func(*graphOptions)

type graphOptions struct {
	observers []Observer
}

// WithObserver attaches an observer that receives events from every run.
func WithObserver(obs Observer) Option {
	return func(o *graphOptions) {
		o.observers = append(o.observers, obs)
	}
}

// New validates def and returns a Graph. It fails when a transition names
// an unknown stage, a stage other than finalize has no single outgoing
// transition, finalize has one, a stage is unreachable, or the stages form
// a cycle.
func New[S State](def Definition[S], opts ...Option) (*Graph[S], error) {
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}

	g := &Graph[S]{
		name:      def.Name,
		entry:     def.Entry,
		finalize:  def.Finalize,
		stages:    make(map[string]Stage[S], len(def.Stages)),
		edges:     make(map[string]string),
		branches:  make(map[string]Branch[S]),
		observers: o.observers,
	}

	invalid := func(format string, args ...any) error {
		return &ConfigError{Pipeline: def.Name, Message: fmt.Sprintf(format, args...)}
	}

	if def.Name == "" {
		return nil, invalid("name is required")
	}
	for _, s := range def.Stages {
		if s.Name == "" {
			return nil, invalid("stage with empty name")
		}
		if s.Run == nil {
			return nil, invalid("stage %q has no body", s.Name)
		}
		if _, dup := g.stages[s.Name]; dup {
			return nil, invalid("duplicate stage %q", s.Name)
		}
		g.stages[s.Name] = s
		g.order = append(g.order, s.Name)
	}
	if _, ok := g.stages[def.Entry]; !ok {
		return nil, invalid("entry stage %q not found", def.Entry)
	}
	if _, ok := g.stages[def.Finalize]; !ok {
		return nil, invalid("finalize stage %q not found", def.Finalize)
	}

	for _, e := range def.Edges {
		if err := g.checkSource(e.From); err != nil {
			return nil, invalid("%v", err)
		}
		if _, ok := g.stages[e.To]; !ok {
			return nil, invalid("edge %s -> %s targets unknown stage", e.From, e.To)
		}
		g.edges[e.From] = e.To
	}
	for _, b := range def.Branches {
		if err := g.checkSource(b.From); err != nil {
			return nil, invalid("%v", err)
		}
		if b.Route == nil {
			return nil, invalid("branch from %q has no routing function", b.From)
		}
		if len(b.Targets) == 0 {
			return nil, invalid("branch from %q declares no targets", b.From)
		}
		for _, t := range b.Targets {
			if _, ok := g.stages[t]; !ok {
				return nil, invalid("branch %s -> %s targets unknown stage", b.From, t)
			}
		}
		g.branches[b.From] = b
	}

	for _, name := range g.order {
		if name == g.finalize {
			continue
		}
		if len(g.successors(name)) == 0 {
			return nil, invalid("stage %q has no outgoing transition", name)
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, invalid("%v", err)
	}
	if err := g.checkReachable(); err != nil {
		return nil, invalid("%v", err)
	}

	return g, nil
}

func (g *Graph[S]) checkSource(from string) error {
	if _, ok := g.stages[from]; !ok {
		return fmt.Errorf("transition from unknown stage %q", from)
	}
	if from == g.finalize {
		return fmt.Errorf("finalize stage %q cannot have outgoing transitions", from)
	}
	_, hasEdge := g.edges[from]
	_, hasBranch := g.branches[from]
	if hasEdge || hasBranch {
		return fmt.Errorf("stage %q has more than one outgoing transition", from)
	}
	return nil
}

func (g *Graph[S]) successors(name string) []string {
	if to, ok := g.edges[name]; ok {
		return []string{to}
	}
	if b, ok := g.branches[name]; ok {
		return b.Targets
	}
	return nil
}

func (g *Graph[S]) checkAcyclic() error {
	const (
		unvisited = iota
		inProgress
		done
	)
	marks := make(map[string]int, len(g.order))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case inProgress:
			return fmt.Errorf("cycle through stage %q", name)
		case done:
			return nil
		}
		marks[name] = inProgress
		for _, next := range g.successors(name) {
			if err := visit(next); err != nil {
				return err
			}
		}
		marks[name] = done
		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph[S]) checkReachable() error {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, next := range g.successors(name) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, name := range g.order {
		if !seen[name] {
			return fmt.Errorf("stage %q is unreachable from entry %q", name, g.entry)
		}
	}
	return nil
}

// Name returns the pipeline name.
func (g *Graph[S]) Name() string { return g.name }

// Entry returns the entry stage name.
func (g *Graph[S]) Entry() string { return g.entry }

// Finalize returns the finalize stage name.
func (g *Graph[S]) Finalize() string { return g.finalize }

// Describe lists the stages in definition order with their successors.
func (g *Graph[S]) Describe() Description {
	d := Description{
		Name:     g.name,
		Entry:    g.entry,
		Finalize: g.finalize,
		Stages:   make([]StageInfo, 0, len(g.order)),
	}
	for _, name := range g.order {
		_, conditional := g.branches[name]
		d.Stages = append(d.Stages, StageInfo{
			Name:        name,
			Next:        slices.Clone(g.successors(name)),
			Conditional: conditional,
		})
	}
	return d
}

// Description is a serializable view of a pipeline's shape.
type Description struct {
	Name     string      `json:"name"`
	Entry    string      `json:"entry"`
	Finalize string      `json:"finalize"`
	Stages   []StageInfo `json:"stages"`
}

// StageInfo describes one stage and the stages it may hand off to.
type StageInfo struct {
	Name        string   `json:"name"`
	Next        []string `json:"next,omitempty"`
	Conditional bool     `json:"conditional,omitempty"`
}
