// Package recommend implements the events and communities recommendation
// pipeline.
package recommend

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Name is the invocation name.
const Name = "events_communities"

// Stage names.
const (
	StageFetchProfile      = "fetch_user_profile"
	StageQuery             = "query_events_and_groups"
	StageRankEvents        = "rank_events"
	StageRankCommunities   = "rank_communities"
	StageGenerateReasoning = "generate_event_reasoning"
	StageFinalize          = "finalize_recommendations"
)

// TopItems is the number of events and of groups kept after ranking.
const TopItems = 10

// Repository is the campus data the pipeline reads. *store.Campus
// satisfies it.
type Repository interface {
	Profile(ctx context.Context, uid, tenantID string) (types.Profile, error)
	PublishedEvents(ctx context.Context, campusID, tenantID string) ([]types.Event, error)
	PublishedGroups(ctx context.Context, campusID, tenantID string) ([]types.Group, error)
}

// Pipeline holds the collaborators shared by every recommendation run.
type Pipeline struct {
	repo      Repository
	augmenter llm.Augmenter
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a recommendation pipeline.
func New(repo Repository, augmenter llm.Augmenter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{repo: repo, augmenter: augmenter, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for event time proximity.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageFetchProfile,
		Finalize: StageFinalize,
		Stages: []pipeline.Stage[State]{
			{Name: StageFetchProfile, Run: p.fetchUserProfile},
			{Name: StageQuery, Run: p.queryEventsAndGroups},
			{Name: StageRankEvents, Run: p.rankEvents},
			{Name: StageRankCommunities, Run: p.rankCommunities},
			{Name: StageGenerateReasoning, Run: p.generateReasoning},
			{Name: StageFinalize, Run: p.finalize},
		},
		Edges: []pipeline.Edge{
			{From: StageFetchProfile, To: StageQuery},
			{From: StageQuery, To: StageRankEvents},
			{From: StageRankEvents, To: StageRankCommunities},
			{From: StageRankCommunities, To: StageGenerateReasoning},
			{From: StageGenerateReasoning, To: StageFinalize},
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
