// Package matching implements the student matching pipeline: deterministic
// compatibility scoring over campus profiles, with model-written reasoning
// for the top matches when a provider is available.
package matching

import (
	"context"
	"log/slog"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Name is the invocation name.
const Name = "matching"

// Stage names.
const (
	StageFetchProfile      = "fetch_user_profile"
	StageQueryCandidates   = "query_candidates"
	StageFilterCandidates  = "filter_candidates"
	StageScoreMatches      = "score_matches"
	StageRankTopMatches    = "rank_top_matches"
	StageGenerateReasoning = "generate_reasoning"
	StageFinalize          = "finalize_response"
)

const (
	DefaultRadiusMeters  = 200000.0
	DefaultMinScore      = 30
	DefaultMaxCandidates = 100
	TopMatches           = 10
	RecentMatchDays      = 30
)

// Fallback reasoning used when the model is unavailable.
const (
	FallbackWhyCompatible       = "Based on shared interests and proximity."
	FallbackConversationStarter = "Hey! Want to connect on CampusConnect?"
)

// Repository is the campus data the pipeline reads and writes.
// *store.Campus satisfies it.
type Repository interface {
	Profile(ctx context.Context, uid, tenantID string) (types.Profile, error)
	CampusProfiles(ctx context.Context, campusID, tenantID string, limit int) ([]types.Profile, error)
	Connections(ctx context.Context, uid, tenantID string) (types.Connections, error)
	RecentMatches(ctx context.Context, uid, tenantID string, days int) ([]types.MatchRecord, error)
	SaveMatch(ctx context.Context, m types.MatchRecord) error
}

// Pipeline holds the collaborators shared by every matching run.
type Pipeline struct {
	repo          Repository
	augmenter     llm.Augmenter
	maxCandidates int
	logger        *slog.Logger
}

// New returns a matching pipeline. maxCandidates <= 0 selects
// DefaultMaxCandidates.
func New(repo Repository, augmenter llm.Augmenter, maxCandidates int, logger *slog.Logger) *Pipeline {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{repo: repo, augmenter: augmenter, maxCandidates: maxCandidates, logger: logger}
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	order := []pipeline.Stage[State]{
		{Name: StageFetchProfile, Run: p.fetchUserProfile},
		{Name: StageQueryCandidates, Run: p.queryCandidates},
		{Name: StageFilterCandidates, Run: p.filterCandidates},
		{Name: StageScoreMatches, Run: p.scoreMatches},
		{Name: StageRankTopMatches, Run: p.rankTopMatches},
		{Name: StageGenerateReasoning, Run: p.generateReasoning},
		{Name: StageFinalize, Run: p.finalize},
	}

	edges := make([]pipeline.Edge, 0, len(order)-1)
	for i := 0; i < len(order)-1; i++ {
		edges = append(edges, pipeline.Edge{From: order[i].Name, To: order[i+1].Name})
	}

	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageFetchProfile,
		Finalize: StageFinalize,
		Stages:   order,
		Edges:    edges,
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
