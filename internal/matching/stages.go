package matching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/scoring"
	"github.com/jonathan/campus-agents/internal/store"
	"github.com/jonathan/campus-agents/internal/types"
)

func (p *Pipeline) fetchUserProfile(ctx context.Context, s State) (State, error) {
	switch {
	case strings.TrimSpace(s.UserID) == "":
		s.Fail("user_id is required")
		return s, nil
	case strings.TrimSpace(s.TenantID) == "":
		s.Fail("tenant_id is required")
		return s, nil
	}

	profile, err := p.repo.Profile(ctx, s.UserID, s.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		s.Fail(fmt.Sprintf("User profile not found: %s", s.UserID))
		return s, nil
	}
	if err != nil {
		p.logger.Error("failed to fetch user profile", "user_id", s.UserID, "error", err)
		s.Fail("Store unavailable. Returning empty matches.")
		return s, nil
	}

	s.UserProfile = &profile
	s.CampusID = profile.CampusID
	return s, nil
}

func (p *Pipeline) queryCandidates(ctx context.Context, s State) (State, error) {
	candidates, err := p.repo.CampusProfiles(ctx, s.CampusID, s.TenantID, p.maxCandidates)
	if err != nil {
		p.logger.Error("failed to query candidates", "campus_id", s.CampusID, "error", err)
		s.Fail("Failed to query candidates. Returning empty matches.")
		return s, nil
	}
	s.Candidates = candidates
	return s, nil
}

// filterCandidates drops existing connections, recent matches and the user,
// then applies the radius and score prefilter. Failing to load either
// exclusion list only loses that exclusion.
func (p *Pipeline) filterCandidates(ctx context.Context, s State) (State, error) {
	var (
		connections types.Connections
		recent      []types.MatchRecord
		g           errgroup.Group
	)
	g.Go(func() error {
		c, err := p.repo.Connections(ctx, s.UserID, s.TenantID)
		if err != nil {
			p.logger.Warn("failed to fetch connections; proceeding without exclusions", "error", err)
			return nil
		}
		connections = c
		return nil
	})
	g.Go(func() error {
		m, err := p.repo.RecentMatches(ctx, s.UserID, s.TenantID, RecentMatchDays)
		if err != nil {
			p.logger.Warn("failed to fetch recent matches; proceeding without exclusions", "error", err)
			return nil
		}
		recent = m
		return nil
	})
	_ = g.Wait()

	excluded := connections.Excluded()
	for _, m := range recent {
		if m.MatchedUserID != "" {
			excluded[m.MatchedUserID] = true
		}
	}

	eligible := make([]types.Profile, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if excluded[c.UID] || c.UID == s.UserID {
			continue
		}
		eligible = append(eligible, c)
	}

	s.FilteredCandidates = scoring.Prefilter(eligible, *s.UserProfile, s.Preferences.Radius(), s.Preferences.Threshold())
	return s, nil
}

func (p *Pipeline) scoreMatches(_ context.Context, s State) (State, error) {
	subject := *s.UserProfile
	subjectPoint, subjectOK := subject.Location()

	scored := make([]ScoredMatch, 0, len(s.FilteredCandidates))
	for _, c := range s.FilteredCandidates {
		base := scoring.Compatibility(subject, c)
		multiplier := 1.0
		if point, ok := c.Location(); ok && subjectOK {
			multiplier = scoring.DistanceMultiplier(subjectPoint, point, s.Preferences.Radius())
		}
		scored = append(scored, ScoredMatch{
			Profile:            c,
			DeterministicScore: int(float64(base) * multiplier),
			BaseScore:          base,
			DistanceMultiplier: multiplier,
		})
	}
	s.ScoredMatches = scored
	return s, nil
}

func (p *Pipeline) rankTopMatches(_ context.Context, s State) (State, error) {
	s.TopMatches = scoring.TopN(s.ScoredMatches, TopMatches, func(m ScoredMatch) float64 {
		return float64(m.DeterministicScore)
	})
	return s, nil
}

func (p *Pipeline) generateReasoning(ctx context.Context, s State) (State, error) {
	reasoning := make(map[string]Reasoning, len(s.TopMatches))
	if len(s.TopMatches) == 0 {
		s.Reasoning = reasoning
		return s, nil
	}

	subject := *s.UserProfile
	for _, m := range s.TopMatches {
		res := llm.Invoke[llm.CompatibilityOutput](ctx, p.augmenter, llm.CompatibilityReasoning, promptData(subject, m))
		if !res.OK() {
			p.logger.Warn("compatibility reasoning failed, using fallback", "match_id", m.UID, "error", res.Err)
			reasoning[m.UID] = Reasoning{
				WhyCompatible:       FallbackWhyCompatible,
				ConversationStarter: FallbackConversationStarter,
				AdjustedScore:       float64(m.DeterministicScore),
			}
			continue
		}
		reasoning[m.UID] = Reasoning{
			WhyCompatible:       res.Value.WhyCompatible,
			ConversationStarter: res.Value.ConversationStarter,
			AdjustedScore:       min(max(res.Value.CompatibilityScore, 0), 100),
			Generated:           true,
		}
	}
	s.Reasoning = reasoning
	return s, nil
}

func (p *Pipeline) finalize(ctx context.Context, s State) (State, error) {
	if s.Error != "" {
		msg := s.Error
		s.FinalMatches = []FinalMatch{}
		s.ResponseMetadata = &ResponseMetadata{
			Success:         false,
			Error:           &msg,
			TotalCandidates: len(s.Candidates),
		}
		return s, nil
	}

	final := make([]FinalMatch, 0, len(s.TopMatches))
	applied := false
	for _, m := range s.TopMatches {
		r, ok := s.Reasoning[m.UID]
		if !ok {
			r = Reasoning{AdjustedScore: float64(m.DeterministicScore)}
		}
		applied = applied || r.Generated

		interests := m.Interests
		if interests == nil {
			interests = []string{}
		}
		fm := FinalMatch{
			ID:                  m.UID,
			Name:                m.Name,
			Major:               m.Major,
			Year:                m.Year,
			Bio:                 m.Bio,
			Interests:           interests,
			Score:               r.AdjustedScore,
			WhyCompatible:       r.WhyCompatible,
			ConversationStarter: r.ConversationStarter,
		}
		final = append(final, fm)

		err := p.repo.SaveMatch(ctx, types.MatchRecord{
			UserID:        s.UserID,
			MatchedUserID: fm.ID,
			Score:         fm.Score,
			Reasoning:     fm.WhyCompatible,
			TenantID:      s.TenantID,
		})
		if err != nil {
			p.logger.Warn("failed to save match", "matched_user_id", fm.ID, "error", err)
		}
	}

	s.FinalMatches = final
	s.ResponseMetadata = &ResponseMetadata{
		Success:          true,
		ReasoningApplied: applied,
		TotalCandidates:  len(s.Candidates),
		FilteredCount:    len(s.FilteredCandidates),
	}
	return s, nil
}

func promptData(subject types.Profile, m ScoredMatch) map[string]string {
	return map[string]string{
		"Name1":      orDefault(subject.Name, "User"),
		"Major1":     orDefault(subject.Major, "Unknown"),
		"Year1":      yearString(subject.Year),
		"Bio1":       subject.Bio,
		"Interests1": strings.Join(subject.Interests, ", "),
		"Name2":      orDefault(m.Name, "Match"),
		"Major2":     orDefault(m.Major, "Unknown"),
		"Year2":      yearString(m.Year),
		"Bio2":       m.Bio,
		"Interests2": strings.Join(m.Interests, ", "),
		"Score":      strconv.Itoa(m.DeterministicScore),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func yearString(year *int) string {
	if year == nil {
		return "0"
	}
	return strconv.Itoa(*year)
}
