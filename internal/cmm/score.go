package cmm

import (
	"math"
)

// Error categories written as point diagnostics.
const (
	errTypeMissed           = "missed"
	errTypeMisplaced        = "missplaced"
	errTypeMisplacedByModel = "missplaced - byModel"
	errTypeNoise            = "noise"
	errTypeNoiseCluster     = "noise - cluster"
	errTypeNoiseByModel     = "noise - byModel"
)

// Score computes the error of every point and aggregates the CMM measures.
func (m *ClusterMatcher) Score() Result {
	a := m.analysis

	var (
		totalError, totalErrorMax         float64
		errorMissed, errorMissedMax       float64
		errorMisplaced, errorMisplacedMax float64
		errorNoise, errorNoiseMax         float64
	)
	res := Result{
		NumPoints:            a.NumPoints(),
		NumNoise:             a.NumNoise(),
		NumFoundClusters:     len(m.found),
		NumReferenceClusters: a.NumReferenceClusters(),
		ClassSeparability:    a.ClassSeparability(),
		NoiseSeparability:    a.NoiseSeparability(),
		ModelQuality:         a.ModelQuality(),
	}

	for p, cp := range a.points {
		noise := cp.isNoise()
		weight := cp.weight
		// noise points have connectivity 1, their maximal error is their weight
		if noise {
			errorNoiseMax += cp.connectivity * weight
		} else {
			errorMissedMax += cp.connectivity * weight
			errorMisplacedMax += cp.connectivity * weight
		}
		totalErrorMax += cp.connectivity * weight

		err := 0.0
		coverage := 0
		for fc := range m.found {
			if !m.included(p, fc) {
				continue
			}
			coverage++
			var e float64
			if noise {
				e = m.noiseError(p, fc)
			} else {
				e = m.misplacedError(p, fc)
			}
			err = math.Max(err, e)
		}

		switch {
		case coverage == 0 && !noise:
			err = m.missedError(p)
			errorMissed += err * weight
		case coverage > 0 && !noise:
			errorMisplaced += err * weight
		case coverage > 0 && noise:
			errorNoise += err * weight
		}

		totalError += err * weight
		if err != 0 {
			res.ErrorCount++
		}
		if coverage > 0 {
			res.Coverage++
			if !noise {
				res.TrueCoverage++
			}
		}
		if coverage > 1 {
			res.Redundancy++
		}

		cp.p.SetDiagnostic(DiagError, err)
		cp.p.SetDiagnostic(DiagRedundancy, coverage)
	}

	res.CMM = ratioScore(totalError, totalErrorMax)
	res.Missed = ratioScore(errorMissed, errorMissedMax)
	res.Misplaced = ratioScore(errorMisplaced, errorMisplacedMax)
	res.Noise = ratioScore(errorNoise, errorNoiseMax)
	res.Basic = 1 - float64(res.ErrorCount)/float64(res.NumPoints)
	return res
}

// ratioScore returns 1 - err/maxErr, or 1 when no error was possible.
func ratioScore(err, maxErr float64) float64 {
	if maxErr == 0 {
		return 1
	}
	return 1 - err/maxErr
}

// byModel reports whether the reference cluster rc includes point p on its own,
// making a wrong assignment an artefact of overlapping cluster models.
func (m *ClusterMatcher) byModel(p, rc int) bool {
	return m.params.EnableModelError && m.analysis.inclusionProbability(rc, p) >= m.params.InclusionThreshold
}

// noiseError is the error of noise point p being covered by found cluster fc.
func (m *ClusterMatcher) noiseError(p, fc int) float64 {
	cp := m.analysis.points[p]
	rc := m.matchMap[fc]
	switch {
	case rc == Unmatched:
		cp.p.SetDiagnostic(DiagErrorType, errTypeNoiseCluster)
		return 1
	case m.byModel(p, rc):
		cp.p.SetDiagnostic(DiagErrorType, errTypeNoiseByModel)
		return MinError
	default:
		cp.p.SetDiagnostic(DiagErrorType, errTypeNoise)
		return 1 - m.analysis.connectionValue(p, rc)
	}
}

// misplacedError is the error of non-noise point p being covered by found cluster fc.
func (m *ClusterMatcher) misplacedError(p, fc int) float64 {
	a := m.analysis
	cp := a.points[p]
	rc := m.matchMap[fc]
	switch {
	case rc == Unmatched:
		return 1
	case rc == a.workLabel(p):
		return 0
	}

	weight := 0.0
	if m.byModel(p, rc) {
		cp.p.SetDiagnostic(DiagErrorType, errTypeMisplacedByModel)
	} else {
		// how far is the point from the members of the wrongly assigned cluster
		weight = 1 - a.connectionValue(p, rc)
	}
	if weight == 0 {
		// never above the point's own maximal error, which is 0 for an isolated point
		return math.Min(MinError, cp.connectivity)
	}
	cp.p.SetDiagnostic(DiagErrorType, errTypeMisplaced)
	return weight * cp.connectivity
}

// missedError is the error of non-noise point p not being covered at all.
// With hull distances the error shrinks for points close to a found cluster of their own class.
func (m *ClusterMatcher) missedError(p int) float64 {
	cp := m.analysis.points[p]
	cp.p.SetDiagnostic(DiagErrorType, errTypeMissed)
	if !m.params.UseHullDistance {
		return cp.connectivity
	}

	wl := m.analysis.workLabel(p)
	minHullDist := 1.0
	for fc, c := range m.found {
		if m.matchMap[fc] == Unmatched || m.matchMap[fc] != wl {
			continue
		}
		hullDist := 1.0
		if h, ok := c.(HullDistancer); ok {
			hullDist = h.HullDistance(cp.p)
		}
		minHullDist = math.Min(minHullDist, hullDist)
	}
	minHullDist = math.Max(0, math.Min(1, minHullDist))

	weight := 1 - math.Exp(-m.params.LambdaMissed*minHullDist)
	cp.p.SetDiagnostic(DiagHullDistWeight, weight)
	return weight * cp.connectivity
}
