package recommend

import (
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Request types.
const (
	RequestEvents      = "events"
	RequestCommunities = "communities"
)

// Candidates are the published items considered for a user.
type Candidates struct {
	Events []types.Event `json:"events"`
	Groups []types.Group `json:"groups"`
}

// ScoredEvent is an event with its relevance score.
type ScoredEvent struct {
	types.Event
	Score float64 `json:"score"`
}

// ScoredGroup is a community with its relevance score.
type ScoredGroup struct {
	types.Group
	Score float64 `json:"score"`
}

// State is the events/communities pipeline record.
type State struct {
	pipeline.Status

	UserID      string         `json:"user_id"`
	TenantID    string         `json:"tenant_id"`
	RequestType string         `json:"request_type,omitempty"`
	Filters     map[string]any `json:"filters,omitempty"`

	UserProfile  *types.Profile    `json:"user_profile,omitempty"`
	CampusID     string            `json:"campus_id,omitempty"`
	Candidates   *Candidates       `json:"candidates,omitempty"`
	RankedEvents []ScoredEvent     `json:"ranked_events,omitempty"`
	RankedGroups []ScoredGroup     `json:"ranked_groups,omitempty"`
	Reasoning    map[string]string `json:"reasoning,omitempty"`

	RankedRecommendations []map[string]any `json:"ranked_recommendations"`
}

func (s State) wantsEvents() bool {
	return s.RequestType == "" || s.RequestType == RequestEvents
}
