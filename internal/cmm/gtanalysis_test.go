package cmm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/clustereval/internal/cluster"
	"github.com/tensorplex-labs/clustereval/internal/cmm"
	"github.com/tensorplex-labs/clustereval/internal/horizon"
)

// square returns four unit-square points with lower left corner (x, y).
func square(label int, x, y float64) []*cluster.DataPoint {
	return []*cluster.DataPoint{
		cluster.NewDataPoint([]float64{x, y}, label, 1, 0),
		cluster.NewDataPoint([]float64{x + 1, y}, label, 1, 0),
		cluster.NewDataPoint([]float64{x, y + 1}, label, 1, 0),
		cluster.NewDataPoint([]float64{x + 1, y + 1}, label, 1, 0),
	}
}

// line returns points on the x axis at the given positions.
func line(label int, xs ...float64) []*cluster.DataPoint {
	points := make([]*cluster.DataPoint, len(xs))
	for i, x := range xs {
		points[i] = cluster.NewDataPoint([]float64{x, 0}, label, 1, 0)
	}
	return points
}

func sphere(label int, radius float64, center ...float64) *cluster.SphereCluster {
	return cluster.NewGroundTruthSphere("gt", center, radius, 1, label)
}

func params(t *testing.T, opts ...cmm.Option) cmm.Params {
	t.Helper()
	ev, err := cmm.NewEvaluator(opts...)
	require.NoError(t, err)
	return ev.Params
}

func analyse(t *testing.T, gt []*cluster.SphereCluster, points []*cluster.DataPoint, opts ...cmm.Option) *cmm.GroundTruthAnalysis {
	t.Helper()
	a, err := cmm.NewGroundTruthAnalysis(cluster.GroundTruth(gt), cluster.Points(points), params(t, opts...))
	require.NoError(t, err)
	return a
}

func concat(groups ...[]*cluster.DataPoint) []*cluster.DataPoint {
	var out []*cluster.DataPoint
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func TestWorkLabelMapping(t *testing.T) {
	gt := []*cluster.SphereCluster{
		sphere(5, 1, 0.5, 0.5),
		sphere(7, 1, 10.5, 10.5),
		sphere(5, 1, 20, 20),
	}
	points := concat(square(5, 0, 0), square(7, 10, 10))

	a := analyse(t, gt, points)

	assert.Equal(t, 2, a.NumGroundTruthClasses())
	assert.Equal(t, 2, a.NumReferenceClusters())
	assert.Equal(t, 1.0, a.ClassSeparability())

	wl, ok := a.WorkLabelOf(5)
	require.True(t, ok)
	assert.Equal(t, 0, wl)
	wl, ok = a.WorkLabelOf(7)
	require.True(t, ok)
	assert.Equal(t, 1, wl)
	_, ok = a.WorkLabelOf(9)
	assert.False(t, ok)

	rc, err := a.ReferenceCluster(0)
	require.NoError(t, err)
	assert.Equal(t, 5, rc.Label)
	assert.Equal(t, []int{0, 2}, rc.Representations)
	assert.Equal(t, []int{0, 1, 2, 3}, rc.Points)

	for p := range 4 {
		assert.Equal(t, 0, a.WorkLabel(p))
		assert.Equal(t, 1, a.WorkLabel(p+4))
	}
}

func TestKnnStatisticsOfSquare(t *testing.T) {
	points := square(0, 0, 0)
	a := analyse(t, []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5)}, points)

	rc, err := a.ReferenceCluster(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rc.KnnMean, 1e-12)
	assert.Greater(t, rc.KnnStdDev, 0.0)
	assert.Less(t, rc.KnnStdDev, 1e-20)
	assert.Equal(t, []float64{1}, rc.Connections)

	for p := range points {
		assert.Equal(t, 1.0, a.Connectivity(p))
		v, ok := points[p].Diagnostic(cmm.DiagKnnAvg)
		require.True(t, ok)
		assert.InDelta(t, 1.0, v, 1e-12)
	}
}

func TestCoincidentPointsHaveNonzeroDeviation(t *testing.T) {
	points := []*cluster.DataPoint{
		cluster.NewDataPoint([]float64{1, 1}, 0, 1, 0),
		cluster.NewDataPoint([]float64{1, 1}, 0, 1, 1),
		cluster.NewDataPoint([]float64{1, 1}, 0, 1, 2),
	}
	a := analyse(t, []*cluster.SphereCluster{sphere(0, 1, 1, 1)}, points)

	rc, err := a.ReferenceCluster(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rc.KnnMean)
	assert.Greater(t, rc.KnnStdDev, 0.0)
	assert.False(t, math.IsInf(rc.KnnStdDev, 0))
	for p := range points {
		assert.Equal(t, 1.0, a.Connectivity(p))
	}
}

func TestSinglePointCluster(t *testing.T) {
	points := concat(square(0, 0, 0), line(1, 50))
	gt := []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5), sphere(1, 1, 50, 0)}
	a := analyse(t, gt, points)

	// a lone point has no neighbours and therefore no connection to its own cluster
	assert.Equal(t, 0.0, a.Connectivity(4))
	assert.Equal(t, 2, a.NumReferenceClusters())
}

func TestEmptyGroundTruthCluster(t *testing.T) {
	gt := []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5), sphere(1, 1, 40, 40)}
	a := analyse(t, gt, square(0, 0, 0))

	rc, err := a.ReferenceCluster(1)
	require.NoError(t, err)
	assert.Empty(t, rc.Points)
	assert.Equal(t, 0.0, rc.KnnMean)
	assert.Equal(t, []float64{0, 1}, rc.Connections)
	assert.Equal(t, 2, a.NumReferenceClusters())
}

func TestMergeInterleavedClasses(t *testing.T) {
	points := concat(line(0, 0, 2, 4, 6), line(1, 1, 3, 5, 7))
	gt := []*cluster.SphereCluster{sphere(0, 4, 3.5, 0), sphere(1, 4, 3.5, 0)}

	t.Run("merging enabled", func(t *testing.T) {
		a := analyse(t, gt, points)
		assert.Equal(t, 1, a.NumReferenceClusters())
		assert.Equal(t, 0.5, a.ClassSeparability())
		assert.Equal(t, []int{0, 0}, a.MergeMap())

		wl, ok := a.WorkLabelOf(1)
		require.True(t, ok)
		assert.Equal(t, 0, wl)

		rc, err := a.ReferenceCluster(0)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, rc.Representations)
		assert.Equal(t, []int{1}, rc.MergedWorkLabels)
		assert.Len(t, rc.Points, 8)
		for p := range points {
			assert.Equal(t, 0, a.WorkLabel(p))
		}

		// the merged line has spacing 1, its endpoints fall behind the inner points
		upper := rc.KnnMean + rc.KnnStdDev
		assert.InDelta(t, 1.125, rc.KnnMean, 1e-12)
		assert.InDelta(t, upper/1.5, a.Connectivity(0), 1e-12)
		assert.InDelta(t, 0.8943, a.Connectivity(0), 1e-4)
		assert.InDelta(t, 0.8943, a.Connectivity(7), 1e-4)
		assert.Equal(t, 1.0, a.Connectivity(1))
	})

	t.Run("merging disabled", func(t *testing.T) {
		a := analyse(t, gt, points, cmm.WithClassMerge(false))
		assert.Equal(t, 2, a.NumReferenceClusters())
		assert.Equal(t, 1.0, a.ClassSeparability())

		rc, err := a.ReferenceCluster(0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, rc.Connections[1], 1e-12)
		assert.Equal(t, 1.0, a.Connectivity(0))
		assert.Equal(t, 1.0, a.Connectivity(7))
	})

	t.Run("tau of one", func(t *testing.T) {
		a := analyse(t, gt, points, cmm.WithTauConnection(1.0))
		assert.Equal(t, 2, a.NumReferenceClusters())
	})
}

func TestMergeRenumbersWorkLabels(t *testing.T) {
	points := concat(line(0, 0, 2, 4, 6), line(1, 100, 101, 102, 103), line(2, 1, 3, 5, 7))
	gt := []*cluster.SphereCluster{sphere(0, 4, 3.5, 0), sphere(1, 2, 101.5, 0), sphere(2, 4, 3.5, 0)}

	a := analyse(t, gt, points)

	require.Equal(t, 2, a.NumReferenceClusters())
	assert.Equal(t, []int{0, 1, 0}, a.MergeMap())
	for label, want := range map[int]int{0: 0, 1: 1, 2: 0} {
		wl, ok := a.WorkLabelOf(label)
		require.True(t, ok)
		assert.Equal(t, want, wl, "label %d", label)
	}

	rc, err := a.ReferenceCluster(1)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.Label)
	assert.Equal(t, 1, rc.WorkLabel)
	assert.Equal(t, 1, rc.OrgWorkLabel)
	assert.Len(t, rc.Connections, 2)
	assert.Less(t, rc.Connections[0], 0.1)

	conn := a.ConnectionMatrix()
	r, c := conn.Dims()
	assert.Equal(t, []int{2, 2}, []int{r, c})
	assert.Equal(t, rc.Connections[0], conn.At(1, 0))
	assert.Equal(t, 1.0, conn.At(0, 0))

	assert.Equal(t, 1, a.WorkLabel(4))
	assert.Equal(t, 0, a.WorkLabel(8))
	assert.InDelta(t, 2.0/3.0, a.ClassSeparability(), 1e-12)
}

func TestConnectionValue(t *testing.T) {
	points := concat(square(0, 0, 0), square(1, 10, 0))
	gt := []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5), sphere(1, 1, 10.5, 0.5)}

	linear := analyse(t, gt, points)
	exp := analyse(t, gt, points, cmm.WithExpConnectivity(0.01, 4))

	own, err := linear.ConnectionValue(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, own)

	far, err := linear.ConnectionValue(4, 0)
	require.NoError(t, err)
	// average distance of (10,0) to its two nearest members of the first square
	dist := (9 + math.Hypot(9, 1)) / 2
	assert.InDelta(t, 1/dist, far, 1e-9)

	farExp, err := exp.ConnectionValue(4, 0)
	require.NoError(t, err)
	assert.Greater(t, farExp, 0.0)
	assert.Less(t, farExp, far)

	_, err = linear.ConnectionValue(-1, 0)
	assert.ErrorIs(t, err, cmm.ErrInconsistentState)
	_, err = linear.ConnectionValue(0, 2)
	assert.ErrorIs(t, err, cmm.ErrInconsistentState)
	_, err = linear.ReferenceCluster(2)
	assert.ErrorIs(t, err, cmm.ErrInconsistentState)
}

func TestNoiseSeparability(t *testing.T) {
	gt := []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5)}

	t.Run("no noise", func(t *testing.T) {
		a := analyse(t, gt, square(0, 0, 0))
		assert.Equal(t, 1.0, a.NoiseSeparability())
		assert.Equal(t, 0, a.NumNoise())
	})

	t.Run("far noise", func(t *testing.T) {
		noise := cluster.NewNoisePoint([]float64{50, 50}, 1, 0)
		a := analyse(t, gt, concat(square(0, 0, 0), []*cluster.DataPoint{noise}))
		assert.Equal(t, 1, a.NumNoise())
		assert.Greater(t, a.NoiseSeparability(), 0.95)
		assert.Less(t, a.NoiseSeparability(), 1.0)
		assert.Equal(t, 1.0, a.Connectivity(4))

		v, ok := noise.Diagnostic(cmm.DiagMaxConnection)
		require.True(t, ok)
		assert.InDelta(t, 1-a.NoiseSeparability(), v, 1e-12)
	})

	t.Run("noise inside class", func(t *testing.T) {
		noise := cluster.NewNoisePoint([]float64{0.5, 0.5}, 1, 0)
		a := analyse(t, gt, concat(square(0, 0, 0), []*cluster.DataPoint{noise}))
		assert.Equal(t, 0.0, a.NoiseSeparability())
	})
}

func TestModelQuality(t *testing.T) {
	gt := []*cluster.SphereCluster{sphere(0, 1, 0, 0), sphere(1, 1, 10, 0)}
	points := concat(
		line(0, 0, 0.5),
		line(1, 10, 10.5),
		[]*cluster.DataPoint{cluster.NewNoisePoint([]float64{0, 0.5}, 1, 0)},
	)

	a := analyse(t, gt, points)
	assert.InDelta(t, 0.8, a.ModelQuality(), 1e-12)
}

func TestGroundTruthAnalysisErrors(t *testing.T) {
	gt := []*cluster.SphereCluster{sphere(0, 1, 0.5, 0.5)}
	p := params(t)

	_, err := cmm.NewGroundTruthAnalysis(cluster.GroundTruth(gt), nil, p)
	assert.ErrorIs(t, err, cmm.ErrEmptyHorizon)

	_, err = cmm.NewGroundTruthAnalysis(cluster.GroundTruth(gt), cluster.Points(line(9, 0, 1)), p)
	assert.ErrorIs(t, err, cmm.ErrUnknownLabel)

	mixed := []*cluster.DataPoint{
		cluster.NewDataPoint([]float64{0, 0}, 0, 1, 0),
		cluster.NewDataPoint([]float64{0, 0, 0}, 0, 1, 1),
	}
	_, err = cmm.NewGroundTruthAnalysis(cluster.GroundTruth(gt), cluster.Points(mixed), p)
	assert.ErrorIs(t, err, cmm.ErrDimensionMismatch)

	p.KnnNeighbourhood = 0
	_, err = cmm.NewGroundTruthAnalysis(cluster.GroundTruth(gt), cluster.Points(square(0, 0, 0)), p)
	assert.ErrorIs(t, err, cmm.ErrInvalidParams)
}

func TestMergingIsMonotonic(t *testing.T) {
	hp := horizon.DefaultParams()
	hp.Classes = 6
	hp.Spread = 0.08
	for seed := range uint64(5) {
		h, err := horizon.Generate(hp, seed)
		require.NoError(t, err)
		_, gt, points := h.EvaluationInput()

		merged, err := cmm.NewGroundTruthAnalysis(gt, points, params(t))
		require.NoError(t, err)
		unmerged, err := cmm.NewGroundTruthAnalysis(gt, points, params(t, cmm.WithClassMerge(false)))
		require.NoError(t, err)

		assert.Equal(t, hp.Classes, unmerged.NumReferenceClusters())
		assert.LessOrEqual(t, merged.NumReferenceClusters(), unmerged.NumReferenceClusters())
		for i := range merged.NumReferenceClusters() {
			rc, err := merged.ReferenceCluster(i)
			require.NoError(t, err)
			assert.Equal(t, i, rc.WorkLabel)
			for _, c := range rc.Connections {
				assert.GreaterOrEqual(t, c, 0.0)
				assert.LessOrEqual(t, c, 1.0)
			}
		}
	}
}

func BenchmarkGroundTruthAnalysis(b *testing.B) {
	h, err := horizon.Generate(horizon.DefaultParams(), 0)
	if err != nil {
		b.Fatal(err)
	}
	_, gt, points := h.EvaluationInput()
	p := cmm.DefaultParams()

	b.ResetTimer()
	for b.Loop() {
		if _, err := cmm.NewGroundTruthAnalysis(gt, points, p); err != nil {
			b.Fatal(err)
		}
	}
}

func TestNoiseOnlyHorizon(t *testing.T) {
	points := []*cluster.DataPoint{
		cluster.NewNoisePoint([]float64{0, 0}, 1, 0),
		cluster.NewNoisePoint([]float64{1, 1}, 1, 1),
	}
	a := analyse(t, nil, points)

	assert.Equal(t, 0, a.NumReferenceClusters())
	assert.Nil(t, a.ConnectionMatrix())
	assert.Equal(t, 1.0, a.ClassSeparability())
	assert.Equal(t, 1.0, a.NoiseSeparability())
	assert.Equal(t, 1.0, a.ModelQuality())
}
