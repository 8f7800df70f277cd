package scoring

import (
	"github.com/jonathan/campus-agents/internal/geo"
	"github.com/jonathan/campus-agents/internal/types"
)

// Prefilter drops the subject, candidates outside radius meters, and
// candidates scoring below minScore. The radius check applies only when both
// profiles carry coordinates, so candidates without a location are kept.
// Input order is preserved.
func Prefilter(candidates []types.Profile, subject types.Profile, radius float64, minScore int) []types.Profile {
	subjectPoint, subjectHasLocation := subject.Location()

	filtered := make([]types.Profile, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.UID == subject.UID {
			continue
		}

		if subjectHasLocation {
			if point, ok := candidate.Location(); ok {
				if geo.Haversine(subjectPoint, point) > radius {
					continue
				}
			}
		}

		if Compatibility(subject, candidate) < minScore {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}
