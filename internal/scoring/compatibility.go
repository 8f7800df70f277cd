// Package scoring provides deterministic scores for matching and recommendations.
// Nothing here calls out to storage or augmentation providers.
package scoring

import (
	"github.com/jonathan/campus-agents/internal/geo"
	"github.com/jonathan/campus-agents/internal/types"
)

// Compatibility score components.
const (
	baseCompatibility     = 40
	pointsPerInterest     = 3
	maxInterestPoints     = 30
	sameMajorPoints       = 15
	closeYearPoints       = 10
	bothBiosPoints        = 5
	maxCompatibilityScore = 100
)

// Compatibility returns the 0-100 compatibility score between two profiles.
func Compatibility(subject, candidate types.Profile) int {
	score := baseCompatibility

	common := len(intersect(subject.Interests, candidate.Interests))
	score += min(common*pointsPerInterest, maxInterestPoints)

	// Absent majors on both sides compare equal.
	if subject.Major == candidate.Major {
		score += sameMajorPoints
	}

	if subject.Year != nil && candidate.Year != nil {
		if abs(*subject.Year-*candidate.Year) <= 1 {
			score += closeYearPoints
		}
	}

	if subject.Bio != "" && candidate.Bio != "" {
		score += bothBiosPoints
	}

	return clampInt(score, 0, maxCompatibilityScore)
}

// DistanceMultiplier returns 1.0 within maxDistance meters and decays linearly
// to 0 at twice that distance. A negative maxDistance is treated as zero.
func DistanceMultiplier(a, b geo.Point, maxDistance float64) float64 {
	maxDistance = max(maxDistance, 0)
	distance := geo.Haversine(a, b)
	if distance <= maxDistance {
		return 1.0
	}
	if maxDistance <= 0 {
		return 0.0
	}
	decay := 1.0 - (distance-maxDistance)/maxDistance
	return clampFloat(decay, 0, 1)
}

// intersect returns the distinct values present in both slices.
func intersect(a, b []string) map[string]bool {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}
	common := make(map[string]bool)
	for _, v := range b {
		if inA[v] {
			common[v] = true
		}
	}
	return common
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
