package matching

import (
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Preferences tune candidate filtering. Absent values use the defaults.
type Preferences struct {
	RadiusMeters *float64 `json:"radiusMeters,omitempty"`
	MinScore     *int     `json:"minScore,omitempty"`
}

// Radius returns the search radius in meters.
func (p Preferences) Radius() float64 {
	if p.RadiusMeters == nil {
		return DefaultRadiusMeters
	}
	return *p.RadiusMeters
}

// Threshold returns the minimum compatibility score.
func (p Preferences) Threshold() int {
	if p.MinScore == nil {
		return DefaultMinScore
	}
	return *p.MinScore
}

// ScoredMatch is a candidate with its deterministic score.
type ScoredMatch struct {
	types.Profile
	DeterministicScore int     `json:"deterministic_score"`
	BaseScore          int     `json:"base_score"`
	DistanceMultiplier float64 `json:"distance_multiplier"`
}

// Reasoning is the explanation attached to one match.
type Reasoning struct {
	WhyCompatible       string  `json:"why_compatible"`
	ConversationStarter string  `json:"conversation_starter"`
	AdjustedScore       float64 `json:"adjusted_score"`
	Generated           bool    `json:"generated"`
}

// FinalMatch is one entry of the response.
type FinalMatch struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Major               string   `json:"major"`
	Year                *int     `json:"year"`
	Bio                 string   `json:"bio"`
	Interests           []string `json:"interests"`
	Score               float64  `json:"score"`
	WhyCompatible       string   `json:"why_compatible"`
	ConversationStarter string   `json:"conversation_starter"`
}

// ResponseMetadata summarizes the run for the caller.
type ResponseMetadata struct {
	Success          bool    `json:"success"`
	Error            *string `json:"error"`
	ReasoningApplied bool    `json:"reasoning_applied"`
	TotalCandidates  int     `json:"total_candidates"`
	FilteredCount    int     `json:"filtered_count"`
}

// State is the matching pipeline record.
type State struct {
	pipeline.Status

	UserID      string      `json:"user_id"`
	TenantID    string      `json:"tenant_id"`
	Preferences Preferences `json:"preferences"`

	UserProfile        *types.Profile       `json:"user_profile,omitempty"`
	CampusID           string               `json:"campus_id,omitempty"`
	Candidates         []types.Profile      `json:"candidates,omitempty"`
	FilteredCandidates []types.Profile      `json:"filtered_candidates,omitempty"`
	ScoredMatches      []ScoredMatch        `json:"scored_matches,omitempty"`
	TopMatches         []ScoredMatch        `json:"top_matches,omitempty"`
	Reasoning          map[string]Reasoning `json:"llm_reasoning,omitempty"`

	FinalMatches     []FinalMatch      `json:"final_matches"`
	ResponseMetadata *ResponseMetadata `json:"response_metadata,omitempty"`
}
