package cluster

import (
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/tensorplex-labs/clustereval/internal/cmm"
)

// SphereCluster is a cluster represented by its bounding sphere. Points within
// the radius are fully included, all others are not included at all.
type SphereCluster struct {
	id          string
	center      []float64
	radius      float64
	weight      float64
	gtLabel     int
	diagnostics map[string]any
}

func NewSphereCluster(id string, center []float64, radius, weight float64) *SphereCluster {
	return &SphereCluster{
		id:          id,
		center:      slices.Clone(center),
		radius:      radius,
		weight:      weight,
		gtLabel:     cmm.NoiseLabel,
		diagnostics: make(map[string]any),
	}
}

// NewGroundTruthSphere returns a sphere cluster representing the class label.
func NewGroundTruthSphere(id string, center []float64, radius, weight float64, label int) *SphereCluster {
	c := NewSphereCluster(id, center, radius, weight)
	c.gtLabel = label
	return c
}

func (c *SphereCluster) ID() string            { return c.id }
func (c *SphereCluster) Center() []float64     { return slices.Clone(c.center) }
func (c *SphereCluster) Radius() float64       { return c.radius }
func (c *SphereCluster) Weight() float64       { return c.weight }
func (c *SphereCluster) GroundTruthLabel() int { return c.gtLabel }

// CenterDistance returns the Euclidean distance of a position to the center.
func (c *SphereCluster) CenterDistance(position []float64) float64 {
	return floats.Distance(c.center, position, 2)
}

func (c *SphereCluster) InclusionProbability(p cmm.Point) float64 {
	if c.CenterDistance(p.Position()) <= c.radius {
		return 1.0
	}
	return 0.0
}

// HullDistance returns (d-r)/(d+r) for the center distance d of the point. It
// is negative inside the sphere and approaches 1 far outside.
func (c *SphereCluster) HullDistance(p cmm.Point) float64 {
	d := c.CenterDistance(p.Position())
	if d+c.radius == 0 {
		return 0
	}
	return (d - c.radius) / (d + c.radius)
}

func (c *SphereCluster) SetDiagnostic(name string, value any) {
	c.diagnostics[name] = value
}

func (c *SphereCluster) Diagnostic(name string) (any, bool) {
	v, ok := c.diagnostics[name]
	return v, ok
}

func (c *SphereCluster) Diagnostics() map[string]any {
	return maps.Clone(c.diagnostics)
}

func (c *SphereCluster) String() string {
	return fmt.Sprintf("Sphere(%s center=%v radius=%.4f label=%d)", c.id, c.center, c.radius, c.gtLabel)
}

// Clusters converts spheres to the found clustering consumed by cmm.
func Clusters(spheres []*SphereCluster) []cmm.Cluster {
	out := make([]cmm.Cluster, len(spheres))
	for i, c := range spheres {
		out[i] = c
	}
	return out
}

// GroundTruth converts spheres to the ground-truth clustering consumed by cmm.
func GroundTruth(spheres []*SphereCluster) []cmm.GroundTruthCluster {
	out := make([]cmm.GroundTruthCluster, len(spheres))
	for i, c := range spheres {
		out[i] = c
	}
	return out
}
