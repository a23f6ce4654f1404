// Package horizon generates synthetic evaluation horizons: Gaussian classes
// with uniform noise, their ground-truth spheres and a perturbed found clustering.
package horizon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tensorplex-labs/clustereval/internal/cluster"
	"github.com/tensorplex-labs/clustereval/internal/cmm"
)

// radiusSigmas is the ground-truth sphere radius in standard deviations.
const radiusSigmas = 3.0

type Params struct {
	Dimensions     int
	Classes        int
	PointsPerClass int
	NoiseFraction  float64 // noise points relative to class points
	Spread         float64 // standard deviation of a class
	Jitter         float64 // standard deviation of found cluster center offsets
	Seed           uint64
}

func DefaultParams() Params {
	return Params{
		Dimensions:     2,
		Classes:        4,
		PointsPerClass: 50,
		NoiseFraction:  0.1,
		Spread:         0.03,
		Jitter:         0.02,
		Seed:           1,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Dimensions < 1:
		return fmt.Errorf("dimensions must be at least 1, got %d", p.Dimensions)
	case p.Classes < 1:
		return fmt.Errorf("classes must be at least 1, got %d", p.Classes)
	case p.PointsPerClass < 1:
		return fmt.Errorf("points per class must be at least 1, got %d", p.PointsPerClass)
	case p.NoiseFraction < 0 || p.NoiseFraction >= 1:
		return fmt.Errorf("noise fraction must be in [0,1), got %f", p.NoiseFraction)
	case p.Spread <= 0:
		return fmt.Errorf("spread must be positive, got %f", p.Spread)
	case p.Jitter < 0:
		return fmt.Errorf("jitter must not be negative, got %f", p.Jitter)
	}
	return nil
}

type Horizon struct {
	ID          string
	Points      []*cluster.DataPoint
	GroundTruth []*cluster.SphereCluster
	Found       []*cluster.SphereCluster
}

// EvaluationInput returns the horizon in the form consumed by cmm.Evaluator.
func (h *Horizon) EvaluationInput() ([]cmm.Cluster, []cmm.GroundTruthCluster, []cmm.Point) {
	return cluster.Clusters(h.Found), cluster.GroundTruth(h.GroundTruth), cluster.Points(h.Points)
}

// Generate creates horizon number index. The same params and index always give the same horizon.
func Generate(params Params, index uint64) (*Horizon, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(params.Seed, index)
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}
	inner := distuv.Uniform{Min: 0.15, Max: 0.85, Src: src}
	jitter := distuv.Normal{Mu: 0, Sigma: math.Max(params.Jitter, math.SmallestNonzeroFloat64), Src: src}
	radiusScale := distuv.Uniform{Min: 0.8, Max: 1.2, Src: src}

	id, err := horizonID(src)
	if err != nil {
		return nil, err
	}
	h := &Horizon{ID: id}
	radius := radiusSigmas * params.Spread
	timestamp := int64(index) * int64(params.Classes*params.PointsPerClass)

	for c := range params.Classes {
		center := make([]float64, params.Dimensions)
		for d := range center {
			center[d] = inner.Rand()
		}
		h.GroundTruth = append(h.GroundTruth,
			cluster.NewGroundTruthSphere(fmt.Sprintf("gt%d", c), center, radius, float64(params.PointsPerClass), c))

		found := make([]float64, params.Dimensions)
		for d := range found {
			found[d] = center[d]
			if params.Jitter > 0 {
				found[d] += jitter.Rand()
			}
		}
		h.Found = append(h.Found,
			cluster.NewSphereCluster(fmt.Sprintf("fc%d", c), found, radius*radiusScale.Rand(), float64(params.PointsPerClass)))

		dists := make([]distuv.Normal, params.Dimensions)
		for d := range dists {
			dists[d] = distuv.Normal{Mu: center[d], Sigma: params.Spread, Src: src}
		}
		for range params.PointsPerClass {
			pos := make([]float64, params.Dimensions)
			for d := range pos {
				pos[d] = dists[d].Rand()
			}
			h.Points = append(h.Points, cluster.NewDataPoint(pos, c, 1, timestamp))
			timestamp++
		}
	}

	numNoise := int(math.Round(params.NoiseFraction * float64(params.Classes*params.PointsPerClass)))
	for range numNoise {
		pos := make([]float64, params.Dimensions)
		for d := range pos {
			pos[d] = unit.Rand()
		}
		h.Points = append(h.Points, cluster.NewNoisePoint(pos, 1, timestamp))
		timestamp++
	}

	// interleave noise with class points the way a stream delivers them
	rng := rand.New(src)
	rng.Shuffle(len(h.Points), func(i, j int) {
		h.Points[i], h.Points[j] = h.Points[j], h.Points[i]
	})
	return h, nil
}

// horizonID draws a version 4 UUID from the seeded source.
func horizonID(src rand.Source) (string, error) {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], src.Uint64())
	binary.LittleEndian.PutUint64(b[8:], src.Uint64())
	id, err := uuid.NewRandomFromReader(bytes.NewReader(b[:]))
	if err != nil {
		return "", fmt.Errorf("horizon id: %w", err)
	}
	return id.String(), nil
}
