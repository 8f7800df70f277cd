package scoring

import (
	"time"

	"github.com/jonathan/campus-agents/internal/types"
)

// Recommendation score components.
const (
	baseRecommendation  = 50.0
	categoryMatchPoints = 15.0
	upcomingEventPoints = 10.0
	upcomingWindow      = 72 * time.Hour
	attendeesPerPoint   = 10.0
	maxPopularityPoints = 15.0
	pointsPerCommonTag  = 5.0
	maxTagPoints        = 20.0
	membersPerPoint     = 50.0
	maxMembershipPoints = 15.0
)

// EventScore scores an event for a subject with the given interests.
// Each bonus is capped individually; the sum has no upper clamp.
func EventScore(event types.Event, interests []string, now time.Time) float64 {
	score := baseRecommendation

	if event.Category != "" && contains(interests, event.Category) {
		score += categoryMatchPoints
	}

	if event.StartTime != nil {
		until := event.StartTime.Sub(now)
		if until >= 0 && until <= upcomingWindow {
			score += upcomingEventPoints
		}
	}

	attendees := float64(max(event.AttendeesCount, 0))
	score += min(attendees/attendeesPerPoint, maxPopularityPoints)
	return score
}

// GroupScore scores a community by tag overlap and membership.
func GroupScore(group types.Group, interests []string) float64 {
	score := baseRecommendation

	common := float64(len(intersect(interests, group.Tags)))
	score += min(common*pointsPerCommonTag, maxTagPoints)

	members := float64(max(group.MemberCount, 0))
	score += min(members/membersPerPoint, maxMembershipPoints)
	return score
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
