package cmm

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// ClusterMatcher maps the found clusters of a horizon onto the reference
// clusters of a ground-truth analysis and scores the resulting errors.
type ClusterMatcher struct {
	params   Params
	analysis *GroundTruthAnalysis
	found    []Cluster

	// inclusion[p][fc] is the probability of point p being included in found cluster fc
	inclusion [][]float64
	matchMap  []int
}

// NewClusterMatcher computes the matching between the found clustering and the
// reference clusters of analysis.
func NewClusterMatcher(found []Cluster, analysis *GroundTruthAnalysis, params Params) (*ClusterMatcher, error) {
	if analysis == nil {
		return nil, fmt.Errorf("ground truth analysis cannot be nil: %w", ErrInconsistentState)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m := &ClusterMatcher{
		params:   params,
		analysis: analysis,
		found:    found,
	}
	m.calculateMatching()
	return m, nil
}

func (m *ClusterMatcher) included(p, fc int) bool {
	return m.inclusion[p][fc] >= m.params.InclusionThreshold
}

func (m *ClusterMatcher) calculateMatching() {
	a := m.analysis
	numRef := a.NumReferenceClusters()
	numPoints := a.NumPoints()

	// found cluster and reference cluster frequency profiles over work labels
	mapFC := make([][]int, len(m.found))
	for fc := range mapFC {
		mapFC[fc] = make([]int, numRef)
	}
	mapGT := make([][]int, numRef)
	for rc := range mapGT {
		mapGT[rc] = make([]int, numRef)
	}
	sumsFC := make([]int, len(m.found))

	m.inclusion = make([][]float64, numPoints)
	for p := range numPoints {
		point := a.Point(p)
		wl := a.workLabel(p)
		m.inclusion[p] = make([]float64, len(m.found))
		for fc, c := range m.found {
			m.inclusion[p][fc] = c.InclusionProbability(point)
			if m.included(p, fc) && wl != NoiseLabel {
				mapFC[fc][wl]++
				sumsFC[fc]++
			}
		}

		if wl == NoiseLabel {
			continue
		}
		for rc := range numRef {
			if rc == wl {
				mapGT[rc][rc]++
			} else if a.inclusionProbability(rc, p) >= 1 {
				mapGT[rc][wl]++
			}
		}
	}

	m.matchMap = make([]int, len(m.found))
	for fc, c := range m.found {
		match := matchCluster(mapFC[fc], mapGT, sumsFC[fc])
		m.matchMap[fc] = match

		realMatch := Unmatched
		if match != Unmatched {
			realMatch = a.clusters[match].label
		}
		c.SetDiagnostic(DiagMatch, fmt.Sprintf("C%d", realMatch))
		c.SetDiagnostic(DiagWorkclass, fmt.Sprintf("C%d", match))

		if e := log.Debug(); e.Enabled() {
			e.Msgf("C%d N:%d | %s = %d | --> %d(work:%d)", fc, int(c.Weight()), formatProfile(mapFC[fc]), sumsFC[fc], realMatch, match)
		}
	}
}

// matchCluster picks the reference cluster for a found cluster with frequency
// profile fcProfile. A profile with a single nonzero entry matches that entry.
// Otherwise the reference profiles the found profile fits into without excess
// are candidates and the one with the largest overlap wins; without candidates
// the reference cluster with the smallest excess wins. Ties go to the first index.
func matchCluster(fcProfile []int, gtProfiles [][]int, sum int) int {
	match := Unmatched
	for rc, freq := range fcProfile {
		if freq == 0 {
			continue
		}
		if match != Unmatched {
			match = Unmatched
			break
		}
		match = rc
	}
	if sum == 0 || match != Unmatched {
		return match
	}

	minDiff := math.MaxInt
	var fitCandidates []int
	for rc, gtProfile := range gtProfiles {
		errDiff := 0
		for wl, freq := range fcProfile {
			if diff := freq - gtProfile[wl]; diff > 0 {
				errDiff += diff
			}
		}
		if errDiff == 0 {
			fitCandidates = append(fitCandidates, rc)
		}
		if errDiff < minDiff {
			minDiff = errDiff
			match = rc
		}
	}

	if len(fitCandidates) > 0 {
		best := fitCandidates[0]
		for _, rc := range fitCandidates[1:] {
			if fcProfile[rc] > fcProfile[best] {
				best = rc
			}
		}
		match = best
	}
	return match
}

func formatProfile(profile []int) string {
	parts := make([]string, len(profile))
	for i, v := range profile {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

// MatchMap returns the reference cluster of every found cluster, or Unmatched.
func (m *ClusterMatcher) MatchMap() []int {
	return slices.Clone(m.matchMap)
}

// InclusionProbability returns the cached probability of a point being included in a found cluster.
func (m *ClusterMatcher) InclusionProbability(point, cluster int) float64 {
	return m.inclusion[point][cluster]
}
