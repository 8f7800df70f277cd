// Package safety implements the content moderation pipeline: fast rule
// checks first, a model classification only when the rules are unsure.
package safety

import (
	"log/slog"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/moderation"
	"github.com/jonathan/campus-agents/internal/pipeline"
)

// Name is the invocation name.
const Name = "safety"

// Stage names.
const (
	StageDetectSpam      = "detect_spam_patterns"
	StageCheckExplicit   = "check_explicit_content"
	StageClassify        = "classify_uncertain"
	StageDetermineAction = "determine_action"
	StageFinalize        = "finalize_safety_response"
)

const (
	// CertainConfidence is the rule confidence above which the model is not
	// consulted.
	CertainConfidence = 0.75
	// ReviewConfidence is the confidence at which flagged content goes to review.
	ReviewConfidence = 0.7
	// FallbackConfidence is used when neither rules nor the model produced one.
	FallbackConfidence = 0.5

	defaultContentType = "message"
)

// Pipeline holds the collaborators shared by every safety run.
type Pipeline struct {
	rules     *moderation.Rules
	augmenter llm.Augmenter
	logger    *slog.Logger
}

// New returns a safety pipeline. Nil rules select the defaults; a nil
// augmenter means every uncertain item keeps its rule-based confidence.
func New(rules *moderation.Rules, augmenter llm.Augmenter, logger *slog.Logger) *Pipeline {
	if rules == nil {
		rules = moderation.Default()
	}
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{rules: rules, augmenter: augmenter, logger: logger}
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageDetectSpam,
		Finalize: StageFinalize,
		Stages: []pipeline.Stage[State]{
			{Name: StageDetectSpam, Run: p.detectSpam},
			{Name: StageCheckExplicit, Run: p.checkExplicit},
			{Name: StageClassify, Run: p.classifyUncertain},
			{Name: StageDetermineAction, Run: p.determineAction},
			{Name: StageFinalize, Run: p.finalize},
		},
		Edges: []pipeline.Edge{
			{From: StageDetectSpam, To: StageCheckExplicit},
			{From: StageCheckExplicit, To: StageClassify},
			{From: StageClassify, To: StageDetermineAction},
			{From: StageDetermineAction, To: StageFinalize},
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
