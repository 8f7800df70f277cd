package types

import "time"

// Event is a published campus event.
type Event struct {
	ID             string     `json:"id"`
	Title          string     `json:"title,omitempty"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category,omitempty"`
	Location       string     `json:"location,omitempty"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	AttendeesCount int        `json:"attendeesCount,omitempty"`
	CampusID       string     `json:"campusId,omitempty"`
	TenantID       string     `json:"tenantId,omitempty"`
	Status         string     `json:"status,omitempty"`
}

// Group is a student community.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	MemberCount int      `json:"memberCount,omitempty"`
	CampusID    string   `json:"campusId,omitempty"`
	TenantID    string   `json:"tenantId,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// FAQArticle is a help article used as answer context.
type FAQArticle struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
