package cmm

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// pushBounded inserts v into s, which is kept sorted by less, and trims s to at most n entries.
func pushBounded(s []float64, v float64, n int, less func(a, b float64) bool) []float64 {
	if len(s) >= n && !less(v, s[len(s)-1]) {
		return s
	}
	i := sort.Search(len(s), func(i int) bool { return less(v, s[i]) })
	s = slices.Insert(s, i, v)
	if len(s) > n {
		s = s[:n]
	}
	return s
}

func ascending(a, b float64) bool  { return a < b }
func descending(a, b float64) bool { return a > b }

// mean returns the arithmetic mean of values, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values) / float64(len(values))
}

// knnDistances returns the distances of point pid to its k nearest members, the point itself excluded.
func (a *GroundTruthAnalysis) knnDistances(pid, k int, members []int) []float64 {
	origin := a.points[pid].position
	nearest := make([]float64, 0, k+1)
	for _, other := range members {
		if other == pid {
			continue
		}
		d := floats.Distance(origin, a.points[other].position, 2)
		nearest = pushBounded(nearest, d, k, ascending)
	}
	return nearest
}
