package cmm

// NoiseLabel marks a point that belongs to no ground-truth class.
const NoiseLabel = -1

// Unmatched is the match map value of a found cluster that covers no ground-truth points.
const Unmatched = -1

// Point is a single observation of the evaluated horizon.
type Point interface {
	Position() []float64
	Label() int
	Weight() float64
	SetDiagnostic(name string, value any)
}

// Cluster is a cluster of the evaluated (found) clustering.
type Cluster interface {
	InclusionProbability(p Point) float64
	Weight() float64
	Center() []float64
	SetDiagnostic(name string, value any)
}

// GroundTruthCluster is a cluster of the ground-truth clustering.
type GroundTruthCluster interface {
	Cluster
	GroundTruthLabel() int
}

// HullDistancer is implemented by clusters that can report the relative
// distance of a point to their boundary, e.g. (d-r)/(d+r) for a sphere.
type HullDistancer interface {
	HullDistance(p Point) float64
}

// ReferenceCluster is a read-only view of a (possibly merged) ground-truth cluster.
type ReferenceCluster struct {
	Label            int       // original class label the cluster started as
	WorkLabel        int       // current dense work label
	OrgWorkLabel     int       // work label before any merge
	Points           []int     // member point indices
	Representations  []int     // indices of the original ground-truth clusters
	MergedWorkLabels []int     // original work labels merged into this cluster
	KnnMean          float64   // mean intra-cluster knn distance
	KnnStdDev        float64   // deviation of the intra-cluster knn distance
	Connections      []float64 // connection strength to every current reference cluster
}

// Measure names reported for each evaluated horizon.
const (
	MeasureCMM               = "CMM"
	MeasureMissed            = "CMM-Missed"
	MeasureMisplaced         = "CMM-Misplaced"
	MeasureNoise             = "CMM-Noise"
	MeasureBasic             = "CMM-Basic"
	MeasureClassSeparability = "Class-Separability"
	MeasureNoiseSeparability = "Noise-Separability"
	MeasureModelQuality      = "Model-Quality"
)

// MeasureNames returns the measure names in reporting order.
func MeasureNames() []string {
	return []string{
		MeasureCMM,
		MeasureMissed,
		MeasureMisplaced,
		MeasureNoise,
		MeasureBasic,
		MeasureClassSeparability,
		MeasureNoiseSeparability,
		MeasureModelQuality,
	}
}

// Result holds the scores of one evaluated horizon.
type Result struct {
	CMM               float64
	Missed            float64
	Misplaced         float64
	Noise             float64
	Basic             float64
	ClassSeparability float64
	NoiseSeparability float64
	ModelQuality      float64

	NumPoints            int
	NumNoise             int
	NumFoundClusters     int
	NumReferenceClusters int
	ErrorCount           int // points with a nonzero error
	Coverage             int // points covered by at least one found cluster, noise included
	TrueCoverage         int // non-noise points covered by at least one found cluster
	Redundancy           int // points covered by more than one found cluster
}

// Measures returns the named measures of the result.
func (r Result) Measures() map[string]float64 {
	return map[string]float64{
		MeasureCMM:               r.CMM,
		MeasureMissed:            r.Missed,
		MeasureMisplaced:         r.Misplaced,
		MeasureNoise:             r.Noise,
		MeasureBasic:             r.Basic,
		MeasureClassSeparability: r.ClassSeparability,
		MeasureNoiseSeparability: r.NoiseSeparability,
		MeasureModelQuality:      r.ModelQuality,
	}
}
