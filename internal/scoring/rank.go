package scoring

import "sort"

// TopN returns up to n items sorted by score descending. Items with equal
// scores keep their input order. The input slice is not modified.
func TopN[T any](items []T, n int, score func(T) float64) []T {
	ranked := make([]T, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
