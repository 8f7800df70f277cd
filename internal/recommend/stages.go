package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/pipeline"
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
	s.RequestType = strings.ToLower(strings.TrimSpace(s.RequestType))
	if s.RequestType == "" {
		s.RequestType = RequestEvents
	}

	profile, err := p.repo.Profile(ctx, s.UserID, s.TenantID)
	if errors.Is(err, store.ErrNotFound) {
		s.Fail(fmt.Sprintf("User profile not found: %s", s.UserID))
		return s, nil
	}
	if err != nil {
		p.logger.Error("failed to fetch user profile", "user_id", s.UserID, "error", err)
		s.Fail("Store unavailable. Returning empty recommendations.")
		return s, nil
	}
	s.UserProfile = &profile
	s.CampusID = profile.CampusID
	return s, nil
}

func (p *Pipeline) queryEventsAndGroups(ctx context.Context, s State) (State, error) {
	var (
		events []types.Event
		groups []types.Group
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = p.repo.PublishedEvents(gctx, s.CampusID, s.TenantID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = p.repo.PublishedGroups(gctx, s.CampusID, s.TenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		p.logger.Error("failed to load events or groups", "campus_id", s.CampusID, "error", err)
		s.Fail("Failed to load events or groups.")
		return s, nil
	}

	s.Candidates = &Candidates{Events: events, Groups: groups}
	return s, nil
}

func (p *Pipeline) rankEvents(_ context.Context, s State) (State, error) {
	now := p.now()
	scored := make([]ScoredEvent, 0, len(s.Candidates.Events))
	for _, e := range s.Candidates.Events {
		scored = append(scored, ScoredEvent{Event: e, Score: scoring.EventScore(e, s.UserProfile.Interests, now)})
	}
	s.RankedEvents = scoring.TopN(scored, TopItems, func(e ScoredEvent) float64 { return e.Score })
	return s, nil
}

func (p *Pipeline) rankCommunities(_ context.Context, s State) (State, error) {
	scored := make([]ScoredGroup, 0, len(s.Candidates.Groups))
	for _, g := range s.Candidates.Groups {
		scored = append(scored, ScoredGroup{Group: g, Score: scoring.GroupScore(g, s.UserProfile.Interests)})
	}
	s.RankedGroups = scoring.TopN(scored, TopItems, func(g ScoredGroup) float64 { return g.Score })
	return s, nil
}

func (p *Pipeline) generateReasoning(ctx context.Context, s State) (State, error) {
	kind := RequestCommunities
	var candidates any = s.RankedGroups
	count := len(s.RankedGroups)
	if s.wantsEvents() {
		kind = RequestEvents
		candidates = s.RankedEvents
		count = len(s.RankedEvents)
	}
	if count == 0 {
		s.Reasoning = map[string]string{}
		return s, nil
	}

	profile, err := json.Marshal(promptProfile(*s.UserProfile))
	if err != nil {
		return s, err
	}
	items, err := json.Marshal(candidates)
	if err != nil {
		return s, err
	}

	res := llm.Invoke[llm.RecommendationOutput](ctx, p.augmenter, llm.RecommendationReasoning, map[string]string{
		"Kind":       kind,
		"Profile":    string(profile),
		"Candidates": string(items),
	})
	if !res.OK() || res.Value.Reasons == nil {
		if res.Err != nil {
			p.logger.Warn("recommendation reasoning failed, continuing without reasons", "error", res.Err)
		}
		s.Reasoning = map[string]string{}
		return s, nil
	}
	s.Reasoning = res.Value.Reasons
	return s, nil
}

func (p *Pipeline) finalize(_ context.Context, s State) (State, error) {
	out := []map[string]any{}
	if s.Error != "" {
		s.RankedRecommendations = out
		return s, nil
	}

	var items []any
	if s.wantsEvents() {
		for _, e := range s.RankedEvents {
			items = append(items, e)
		}
	} else {
		for _, g := range s.RankedGroups {
			items = append(items, g)
		}
	}

	for _, item := range items {
		rec, err := pipeline.Encode(item)
		if err != nil {
			return s, err
		}
		id, _ := rec["id"].(string)
		if id == "" {
			id, _ = rec["uid"].(string)
		}
		rec["reason"] = s.Reasoning[id]
		out = append(out, rec)
	}
	s.RankedRecommendations = out
	return s, nil
}

// promptProfile keeps the fields that matter for relevance.
func promptProfile(p types.Profile) map[string]any {
	return map[string]any{
		"name":      p.Name,
		"major":     p.Major,
		"year":      p.Year,
		"bio":       p.Bio,
		"interests": p.Interests,
	}
}
