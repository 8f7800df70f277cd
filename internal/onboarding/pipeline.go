// Package onboarding implements the step-by-step profile setup pipeline.
package onboarding

import (
	"context"
	"log/slog"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
)

// Name is the invocation name.
const Name = "onboarding"

// Stage names.
const (
	StageDetermineStep  = "determine_current_step"
	StageValidate       = "validate_step_data"
	StageGeneratePrompt = "generate_next_prompt"
	StageSaveProgress   = "save_progress"
	StageCheckComplete  = "check_completion"
	StageFinalize       = "finalize_onboarding"
)

// Prompt text used without a model.
const (
	FixFieldsPrompt  = "Please fix the highlighted fields to continue."
	FallbackPrompt   = "What would you like to share next?"
	FallbackGuidance = "Provide the next piece of profile information."
)

// Repository persists onboarding progress. *store.Campus satisfies it.
type Repository interface {
	SaveProfile(ctx context.Context, uid, tenantID string, fields map[string]any) error
}

// Pipeline holds the collaborators shared by every onboarding run.
type Pipeline struct {
	repo      Repository
	augmenter llm.Augmenter
	logger    *slog.Logger
}

// New returns an onboarding pipeline.
func New(repo Repository, augmenter llm.Augmenter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{repo: repo, augmenter: augmenter, logger: logger}
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageDetermineStep,
		Finalize: StageFinalize,
		Stages: []pipeline.Stage[State]{
			{Name: StageDetermineStep, Run: p.determineStep},
			{Name: StageValidate, Run: p.validateStep},
			{Name: StageGeneratePrompt, Run: p.generatePrompt},
			{Name: StageSaveProgress, Run: p.saveProgress},
			{Name: StageCheckComplete, Run: p.checkCompletion},
			{Name: StageFinalize, Run: p.finalize},
		},
		Edges: []pipeline.Edge{
			{From: StageDetermineStep, To: StageValidate},
			{From: StageValidate, To: StageGeneratePrompt},
			{From: StageGeneratePrompt, To: StageSaveProgress},
			{From: StageSaveProgress, To: StageCheckComplete},
			{From: StageCheckComplete, To: StageFinalize},
		},
	}
}

// Graph builds the validated graph.
func (p *Pipeline) Graph(opts ...pipeline.Option) (*pipeline.Graph[State], error) {
	return pipeline.New(p.Definition(), opts...)
}

// Runner returns the pipeline bound for registry use.
func (p *Pipeline) Runner(opts ...pipeline.Option) (pipeline.Runner, error) {
	g, err := p.Graph(opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.Bind(g, nil), nil
}
