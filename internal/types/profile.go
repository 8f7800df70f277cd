// Package types provides the campus records shared by the pipelines.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/jonathan/campus-agents/internal/geo"
)

// Profile is a student profile from profiles/{uid}, merged with users/{uid}.
type Profile struct {
	UID         string   `json:"uid"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Major       string   `json:"major,omitempty"`
	Year        *int     `json:"year,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	LocationLat *float64 `json:"locationLat,omitempty"`
	LocationLng *float64 `json:"locationLng,omitempty"`
	CampusID    string   `json:"campusId,omitempty"`
	TenantID    string   `json:"tenantId,omitempty"`
}

// Location returns the profile coordinates, or false when either is missing.
func (p Profile) Location() (geo.Point, bool) {
	if p.LocationLat == nil || p.LocationLng == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *p.LocationLat, Lng: *p.LocationLng}, true
}

// Connections lists the uids a user already has a relationship with.
type Connections struct {
	Accepted []string `json:"accepted"`
	Pending  []string `json:"pending"`
	Blocked  []string `json:"blocked"`
}

// Excluded returns the union of accepted, pending and blocked uids.
func (c Connections) Excluded() map[string]bool {
	out := make(map[string]bool, len(c.Accepted)+len(c.Pending)+len(c.Blocked))
	for _, list := range [][]string{c.Accepted, c.Pending, c.Blocked} {
		for _, uid := range list {
			out[uid] = true
		}
	}
	return out
}

// MatchRecord is an append-only entry in the matches collection.
type MatchRecord struct {
	UserID        string    `json:"userId"`
	MatchedUserID string    `json:"matchedUserId"`
	Score         float64   `json:"score"`
	Reasoning     string    `json:"reasoning"`
	TenantID      string    `json:"tenantId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
