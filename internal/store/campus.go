package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/campus-agents/internal/types"
)

// DefaultHelpLimit caps the help articles loaded as answer context.
const DefaultHelpLimit = 20

// Campus reads and writes campus records through a Store. It owns the
// tenant rules and field normalization the pipelines rely on.
type Campus struct {
	store Store
	now   func() time.Time
}

// NewCampus creates a repository over s.
func NewCampus(s Store) *Campus {
	return &Campus{store: s, now: time.Now}
}

// WithClock overrides the clock used for createdAt and recency windows.
func (c *Campus) WithClock(now func() time.Time) *Campus {
	return &Campus{store: c.store, now: now}
}

// Store returns the underlying store.
func (c *Campus) Store() Store { return c.store }

// Profile loads profiles/{uid} merged with users/{uid}. It returns
// ErrNotFound when the profile is missing or belongs to another tenant.
func (c *Campus) Profile(ctx context.Context, uid, tenantID string) (types.Profile, error) {
	doc, err := c.store.Get(ctx, Profiles, uid)
	if err != nil {
		return types.Profile{}, err
	}

	user, err := c.store.Get(ctx, Users, uid)
	switch {
	case errors.Is(err, ErrNotFound):
		user = nil
	case err != nil:
		return types.Profile{}, err
	}
	if user != nil && user.String("tenantId") != tenantID {
		return types.Profile{}, ErrNotFound
	}

	p := profileFromDocument(mergeUser(doc, user))
	if p.UID == "" {
		p.UID = uid
	}
	return p, nil
}

// CampusProfiles returns up to limit profiles on a campus belonging to the
// tenant. Membership in the tenant is decided by users/{uid}.tenantId.
func (c *Campus) CampusProfiles(ctx context.Context, campusID, tenantID string, limit int) ([]types.Profile, error) {
	var filters []Filter
	if campusID != "" {
		filters = append(filters, Eq("campusId", campusID))
	}
	docs, err := c.store.Query(ctx, Profiles, filters, limit)
	if err != nil {
		return nil, err
	}

	if tenantID == "" {
		out := make([]types.Profile, 0, len(docs))
		for _, d := range docs {
			out = append(out, profileFromDocument(d))
		}
		return out, nil
	}

	users, err := c.store.Query(ctx, Users, []Filter{Eq("tenantId", tenantID)}, 0)
	if err != nil {
		return nil, err
	}
	tenantUsers := make(map[string]Document, len(users))
	for _, u := range users {
		uid := u.String("uid")
		if uid == "" {
			uid = u.String(IDField)
		}
		tenantUsers[uid] = u
	}

	out := make([]types.Profile, 0, len(docs))
	for _, d := range docs {
		uid := d.String("uid")
		user, ok := tenantUsers[uid]
		if !ok {
			continue
		}
		out = append(out, profileFromDocument(mergeUser(d, user)))
	}
	return out, nil
}

// Connections returns the user's connection lists. A missing document or
// one from another tenant yields empty lists.
func (c *Campus) Connections(ctx context.Context, uid, tenantID string) (types.Connections, error) {
	empty := types.Connections{Accepted: []string{}, Pending: []string{}, Blocked: []string{}}
	doc, err := c.store.Get(ctx, Connections, uid)
	if errors.Is(err, ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return empty, err
	}
	if doc.String("tenantId") != tenantID {
		return empty, nil
	}
	return types.Connections{
		Accepted: doc.Strings("accepted"),
		Pending:  doc.Strings("pending"),
		Blocked:  doc.Strings("blocked"),
	}, nil
}

// RecentMatches returns the user's matches in the tenant created within
// the last days days. Records without createdAt are ignored.
func (c *Campus) RecentMatches(ctx context.Context, uid, tenantID string, days int) ([]types.MatchRecord, error) {
	docs, err := c.store.Query(ctx, Matches, []Filter{Eq("userId", uid)}, 0)
	if err != nil {
		return nil, err
	}
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)

	var out []types.MatchRecord
	for _, d := range docs {
		if d.String("tenantId") != tenantID {
			continue
		}
		created, ok := d.Time("createdAt")
		if !ok || created.Before(cutoff) {
			continue
		}
		score, _ := d.Float("score")
		out = append(out, types.MatchRecord{
			UserID:        d.String("userId"),
			MatchedUserID: d.String("matchedUserId"),
			Score:         score,
			Reasoning:     d.String("reasoning"),
			TenantID:      d.String("tenantId"),
			CreatedAt:     created,
		})
	}
	return out, nil
}

// SaveMatch appends a match record, stamping createdAt when unset.
func (c *Campus) SaveMatch(ctx context.Context, m types.MatchRecord) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = c.now().UTC()
	}
	doc, err := FromStruct(m)
	if err != nil {
		return fmt.Errorf("failed to encode match: %w", err)
	}
	_, err = c.store.Append(ctx, Matches, doc)
	return err
}

// PublishedEvents returns published events for the campus and tenant.
func (c *Campus) PublishedEvents(ctx context.Context, campusID, tenantID string) ([]types.Event, error) {
	docs, err := c.store.Query(ctx, Events, publishedFilters(campusID, tenantID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]types.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, eventFromDocument(d))
	}
	return out, nil
}

// PublishedGroups returns published groups for the campus and tenant.
func (c *Campus) PublishedGroups(ctx context.Context, campusID, tenantID string) ([]types.Group, error) {
	docs, err := c.store.Query(ctx, Groups, publishedFilters(campusID, tenantID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]types.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, groupFromDocument(d))
	}
	return out, nil
}

// HelpArticles returns up to limit articles from help_articles, or from
// faq when help_articles is empty. Articles tagged with another tenant are
// skipped.
func (c *Campus) HelpArticles(ctx context.Context, tenantID string, limit int) ([]types.FAQArticle, error) {
	if limit <= 0 {
		limit = DefaultHelpLimit
	}
	for _, collection := range []string{HelpArticles, FAQ} {
		docs, err := c.store.Query(ctx, collection, nil, limit*2)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			continue
		}
		out := make([]types.FAQArticle, 0, limit)
		for _, d := range docs {
			if tenantID != "" && d.String("tenantId") != "" && d.String("tenantId") != tenantID {
				continue
			}
			out = append(out, types.FAQArticle{
				ID:       d.String(IDField),
				Question: d.String("question"),
				Answer:   d.String("answer"),
			})
			if len(out) >= limit {
				break
			}
		}
		return out, nil
	}
	return []types.FAQArticle{}, nil
}

// SaveProfile merges fields into profiles/{uid} and stamps tenantId.
func (c *Campus) SaveProfile(ctx context.Context, uid, tenantID string, fields map[string]any) error {
	doc := Document{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["tenantId"] = tenantID
	return c.store.Merge(ctx, Profiles, uid, doc)
}

func publishedFilters(campusID, tenantID string) []Filter {
	return []Filter{
		Eq("campusId", campusID),
		Eq("tenantId", tenantID),
		Eq("status", "published"),
	}
}

// mergeUser fills tenantId, email and name from the users document when the
// profile lacks them, then maps displayName to name and degree to major.
func mergeUser(profile, user Document) Document {
	merged := profile.Clone()
	if merged == nil {
		merged = Document{}
	}
	for _, key := range []string{"tenantId", "email", "name"} {
		if _, present := merged[key]; !present && user != nil {
			merged[key] = user[key]
		}
	}
	if _, present := merged["name"]; !present || merged["name"] == nil {
		if dn := merged.String("displayName"); dn != "" {
			merged["name"] = dn
		}
	}
	if _, present := merged["major"]; !present {
		if degree := merged.String("degree"); degree != "" {
			merged["major"] = degree
		}
	}
	return merged
}

func profileFromDocument(d Document) types.Profile {
	p := types.Profile{
		UID:       d.String("uid"),
		Name:      d.String("name"),
		Email:     d.String("email"),
		Major:     d.String("major"),
		Bio:       d.String("bio"),
		Interests: d.Strings("interests"),
		PhotoURL:  d.String("photoUrl"),
		CampusID:  d.String("campusId"),
		TenantID:  d.String("tenantId"),
	}
	if year, ok := d.Int("year"); ok {
		p.Year = types.IntPtr(year)
	}
	if lat, ok := d.Float("locationLat"); ok {
		p.LocationLat = types.FloatPtr(lat)
	}
	if lng, ok := d.Float("locationLng"); ok {
		p.LocationLng = types.FloatPtr(lng)
	}
	return p
}

func eventFromDocument(d Document) types.Event {
	e := types.Event{
		ID:          d.String(IDField),
		Title:       d.String("title"),
		Description: d.String("description"),
		Category:    d.String("category"),
		Location:    d.String("location"),
		CampusID:    d.String("campusId"),
		TenantID:    d.String("tenantId"),
		Status:      d.String("status"),
	}
	if start, ok := d.Time("startTime"); ok {
		e.StartTime = &start
	}
	if n, ok := d.Int("attendeesCount"); ok {
		e.AttendeesCount = n
	}
	return e
}

func groupFromDocument(d Document) types.Group {
	g := types.Group{
		ID:          d.String(IDField),
		Name:        d.String("name"),
		Description: d.String("description"),
		Tags:        d.Strings("tags"),
		CampusID:    d.String("campusId"),
		TenantID:    d.String("tenantId"),
		Status:      d.String("status"),
	}
	if n, ok := d.Int("memberCount"); ok {
		g.MemberCount = n
	}
	return g
}
