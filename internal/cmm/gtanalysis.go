package cmm

import (
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// cmmPoint wraps a horizon point with the values computed by the analysis.
type cmmPoint struct {
	p            Point
	position     []float64
	label        int
	weight       float64
	connectivity float64
	knnInCluster float64
}

func (cp *cmmPoint) isNoise() bool {
	return cp.label == NoiseLabel
}

// gtCluster is a reference cluster: one or more ground-truth clusters treated as one class.
type gtCluster struct {
	points           []int
	representations  []int
	workLabel        int
	orgWorkLabel     int
	label            int
	mergedWorkLabels []int
	knnMean          float64
	knnStdDev        float64
	connections      []float64
}

// GroundTruthAnalysis reduces a ground-truth clustering to connectivity-merged
// reference clusters and scores how well every point belongs to its class.
type GroundTruthAnalysis struct {
	params     Params
	lambdaConn float64

	gt       []GroundTruthCluster
	points   []*cmmPoint
	clusters []*gtCluster
	noise    []int

	workLabels   map[int]int // original label -> work label
	mergeMap     []int       // original work label -> current work label
	numGTClasses int

	classSeparability float64
	noiseSeparability float64
	modelQuality      float64
}

// NewGroundTruthAnalysis analyses the ground truth of one horizon. Merging of
// connected classes is controlled by params.EnableClassMerge.
func NewGroundTruthAnalysis(gt []GroundTruthCluster, points []Point, params Params) (*GroundTruthAnalysis, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrEmptyHorizon
	}

	a := &GroundTruthAnalysis{
		params:     params,
		lambdaConn: params.lambdaConn(),
		gt:         gt,
		workLabels: make(map[int]int),
	}

	// labels are an arbitrary set of integers, map them onto dense work labels
	for i, c := range gt {
		label := c.GroundTruthLabel()
		if wl, ok := a.workLabels[label]; ok {
			a.clusters[wl].representations = append(a.clusters[wl].representations, i)
			continue
		}
		wl := len(a.clusters)
		a.clusters = append(a.clusters, &gtCluster{
			workLabel:       wl,
			orgWorkLabel:    wl,
			label:           label,
			representations: []int{i},
		})
		a.workLabels[label] = wl
	}
	a.numGTClasses = len(a.clusters)
	a.mergeMap = make([]int, a.numGTClasses)
	for i := range a.mergeMap {
		a.mergeMap[i] = i
	}

	dims := len(points[0].Position())
	a.points = make([]*cmmPoint, len(points))
	for i, p := range points {
		pos := p.Position()
		if len(pos) != dims {
			return nil, fmt.Errorf("point %d has %d dimensions, expected %d: %w", i, len(pos), dims, ErrDimensionMismatch)
		}
		a.points[i] = &cmmPoint{
			p:            p,
			position:     pos,
			label:        p.Label(),
			weight:       p.Weight(),
			connectivity: 1.0,
		}
	}

	for i, cp := range a.points {
		if cp.isNoise() {
			a.noise = append(a.noise, i)
			continue
		}
		wl, ok := a.workLabels[cp.label]
		if !ok {
			return nil, fmt.Errorf("point %d with label %d: %w", i, cp.label, ErrUnknownLabel)
		}
		a.clusters[wl].points = append(a.clusters[wl].points, i)
	}

	for _, c := range a.clusters {
		a.calculateKnn(c)
	}
	for _, c := range a.clusters {
		a.calculateConnectivity(c)
	}
	if err := a.calculateClusterConnections(); err != nil {
		return nil, err
	}

	a.classSeparability = a.calculateClassSeparability()
	a.noiseSeparability = a.calculateNoiseSeparability()
	a.modelQuality = a.calculateModelQuality()

	return a, nil
}

// calculateKnn computes the knn distance of every member within its own cluster
// and the mean and deviation of these distances.
func (a *GroundTruthAnalysis) calculateKnn(c *gtCluster) {
	dists := make([]float64, 0, len(c.points))
	for _, pid := range c.points {
		cp := a.points[pid]
		cp.knnInCluster = mean(a.knnDistances(pid, a.params.KnnNeighbourhood, c.points))
		cp.p.SetDiagnostic(DiagKnnAvg, cp.knnInCluster)
		dists = append(dists, cp.knnInCluster)
	}

	var m, variance float64
	if len(dists) > 0 {
		m, variance = stat.PopMeanVariance(dists, nil)
	}
	// rounding can produce tiny negative values
	if variance <= 0 || math.IsNaN(variance) {
		variance = varianceFloor
	}
	c.knnMean = m
	c.knnStdDev = math.Sqrt(variance)
}

// calculateConnectivity sets the connectivity of every member to its own cluster.
func (a *GroundTruthAnalysis) calculateConnectivity(c *gtCluster) {
	for _, pid := range c.points {
		cp := a.points[pid]
		cp.connectivity = a.connectionValue(pid, c.workLabel)
		cp.p.SetDiagnostic(DiagConnectivity, cp.connectivity)
	}
}

// connectionValue is the soft membership of point pid to cluster cid.
func (a *GroundTruthAnalysis) connectionValue(pid, cid int) float64 {
	c := a.clusters[cid]
	dists := a.knnDistances(pid, a.params.KnnNeighbourhood, c.points)
	if len(dists) == 0 {
		return 0
	}
	avgDist := mean(dists)

	upperKnn := c.knnMean + c.knnStdDev
	if avgDist <= upperKnn {
		return 1
	}
	if a.params.UseExpConnectivity {
		return math.Pow(2, -a.lambdaConn*(avgDist-upperKnn)/upperKnn)
	}
	return upperKnn / avgDist
}

// clusterConnection is the connection strength from cluster c to cluster other:
// the mean of the m strongest point connections of c's members.
func (a *GroundTruthAnalysis) clusterConnection(c *gtCluster, other int, initial bool) float64 {
	if c.workLabel == other {
		return 1
	}
	m := a.params.maxPoints()
	strongest := make([]float64, 0, m+1)
	for _, pid := range c.points {
		cp := a.points[pid]
		conn := a.connectionValue(pid, other)
		if initial {
			cp.p.SetDiagnostic(fmt.Sprintf("Connection to C%d", other), conn)
		}
		strongest = pushBounded(strongest, cp.connectivity*conn, m, descending)
	}
	return mean(strongest)
}

func (a *GroundTruthAnalysis) setClusterConnection(c *gtCluster, other int, initial bool) error {
	if other < 0 || other >= len(c.connections) {
		return fmt.Errorf("connection index %d of cluster %d out of range [0,%d): %w",
			other, c.workLabel, len(c.connections), ErrInconsistentState)
	}
	c.connections[other] = a.clusterConnection(c, other, initial)
	return nil
}

// calculateClusterConnections computes all pairwise connections and merges
// clusters as long as a pair is connected stronger than tau.
func (a *GroundTruthAnalysis) calculateClusterConnections() error {
	for _, c := range a.clusters {
		c.connections = make([]float64, len(a.clusters))
		for other := range a.clusters {
			if err := a.setClusterConnection(c, other, true); err != nil {
				return err
			}
		}
	}

	tau := a.params.tau()
	for {
		i, j, conn, ok := selectMergePair(a.connectionMatrix(), tau)
		if !ok {
			break
		}
		log.Debug().Msgf("Merging C%d into C%d with connection %f (tau %f)", a.clusters[j].label, a.clusters[i].label, conn, tau)
		if err := a.mergeCluster(i, j); err != nil {
			return err
		}
	}
	return nil
}

func (a *GroundTruthAnalysis) connectionMatrix() [][]float64 {
	rows := make([][]float64, len(a.clusters))
	for i, c := range a.clusters {
		rows[i] = c.connections
	}
	return rows
}

// selectMergePair returns the pair i<j with the strongest mutual connection
// min(conn[i][j], conn[j][i]) if it exceeds tau. The first pair wins ties.
func selectMergePair(conn [][]float64, tau float64) (int, int, float64, bool) {
	maxConn := 0.0
	maxI, maxJ := -1, -1
	for i := range conn {
		for j := i + 1; j < len(conn); j++ {
			m := math.Min(conn[i][j], conn[j][i])
			if m > maxConn {
				maxConn = m
				maxI, maxJ = i, j
			}
		}
	}
	if maxI == -1 || maxConn <= tau {
		return -1, -1, maxConn, false
	}
	return maxI, maxJ, maxConn, true
}

// mergeCluster merges cluster from into cluster into and renumbers all work
// labels so that they stay dense.
func (a *GroundTruthAnalysis) mergeCluster(into, from int) error {
	n := len(a.clusters)
	if into < 0 || into >= n || from < 0 || from >= n || into == from {
		return fmt.Errorf("merge of cluster %d into %d with %d clusters: %w", from, into, n, ErrInconsistentState)
	}
	target := into
	if into > from {
		target--
	}
	renumber := func(wl int) int {
		switch {
		case wl == from:
			return target
		case wl > from:
			return wl - 1
		}
		return wl
	}
	for i, wl := range a.mergeMap {
		a.mergeMap[i] = renumber(wl)
	}
	for label, wl := range a.workLabels {
		a.workLabels[label] = renumber(wl)
	}

	dst, src := a.clusters[into], a.clusters[from]
	dst.points = append(dst.points, src.points...)
	dst.representations = append(dst.representations, src.representations...)
	dst.mergedWorkLabels = append(dst.mergedWorkLabels, src.orgWorkLabel)
	dst.mergedWorkLabels = append(dst.mergedWorkLabels, src.mergedWorkLabels...)

	a.clusters = slices.Delete(a.clusters, from, from+1)
	for i, c := range a.clusters {
		c.workLabel = i
		c.connections = slices.Delete(c.connections, from, from+1)
	}

	a.calculateKnn(dst)
	a.calculateConnectivity(dst)
	for _, c := range a.clusters {
		if err := a.setClusterConnection(c, dst.workLabel, false); err != nil {
			return err
		}
		if err := a.setClusterConnection(dst, c.workLabel, false); err != nil {
			return err
		}
	}
	return nil
}

func (a *GroundTruthAnalysis) calculateClassSeparability() float64 {
	if a.numGTClasses == 0 {
		return 1
	}
	return float64(len(a.clusters)) / float64(a.numGTClasses)
}

func (a *GroundTruthAnalysis) calculateNoiseSeparability() float64 {
	if len(a.noise) == 0 {
		return 1
	}
	connectivity := 0.0
	for _, pid := range a.noise {
		maxConnection := 0.0
		for cid := range a.clusters {
			if conn := a.connectionValue(pid, cid); conn > maxConnection {
				maxConnection = conn
			}
		}
		connectivity += maxConnection
		a.points[pid].p.SetDiagnostic(DiagMaxConnection, maxConnection)
	}
	return 1 - connectivity/float64(len(a.noise))
}

// calculateModelQuality counts points fully covered by a ground-truth cluster
// of a different class, i.e. errors the cluster model cannot avoid.
func (a *GroundTruthAnalysis) calculateModelQuality() float64 {
	pointErrorByModel, noiseErrorByModel := 0, 0
	for _, cp := range a.points {
		for _, c := range a.gt {
			if c.GroundTruthLabel() == cp.label {
				continue
			}
			if c.InclusionProbability(cp.p) >= 1 {
				if cp.isNoise() {
					noiseErrorByModel++
				} else {
					pointErrorByModel++
				}
				break
			}
		}
	}
	log.Debug().Msgf("Error by model: noise %d point %d", noiseErrorByModel, pointErrorByModel)
	return 1 - float64(pointErrorByModel+noiseErrorByModel)/float64(len(a.points))
}

// inclusionProbability of point pid in reference cluster cid, the maximum over its representations.
func (a *GroundTruthAnalysis) inclusionProbability(cid, pid int) float64 {
	prob := 0.0
	for _, rep := range a.clusters[cid].representations {
		if p := a.gt[rep].InclusionProbability(a.points[pid].p); p > prob {
			prob = p
		}
	}
	return prob
}

// workLabel returns the current work label of point pid, or NoiseLabel.
func (a *GroundTruthAnalysis) workLabel(pid int) int {
	cp := a.points[pid]
	if cp.isNoise() {
		return NoiseLabel
	}
	return a.workLabels[cp.label]
}

// ConnectionValue returns the soft membership of a point to a reference cluster.
func (a *GroundTruthAnalysis) ConnectionValue(point, cluster int) (float64, error) {
	if point < 0 || point >= len(a.points) {
		return 0, fmt.Errorf("point index %d out of range [0,%d): %w", point, len(a.points), ErrInconsistentState)
	}
	if cluster < 0 || cluster >= len(a.clusters) {
		return 0, fmt.Errorf("cluster index %d out of range [0,%d): %w", cluster, len(a.clusters), ErrInconsistentState)
	}
	return a.connectionValue(point, cluster), nil
}

// ReferenceCluster returns a copy of the reference cluster with the given work label.
func (a *GroundTruthAnalysis) ReferenceCluster(index int) (ReferenceCluster, error) {
	if index < 0 || index >= len(a.clusters) {
		return ReferenceCluster{}, fmt.Errorf("cluster index %d out of range [0,%d): %w", index, len(a.clusters), ErrInconsistentState)
	}
	c := a.clusters[index]
	return ReferenceCluster{
		Label:            c.label,
		WorkLabel:        c.workLabel,
		OrgWorkLabel:     c.orgWorkLabel,
		Points:           slices.Clone(c.points),
		Representations:  slices.Clone(c.representations),
		MergedWorkLabels: slices.Clone(c.mergedWorkLabels),
		KnnMean:          c.knnMean,
		KnnStdDev:        c.knnStdDev,
		Connections:      slices.Clone(c.connections),
	}, nil
}

// Point returns the horizon point with the given index.
func (a *GroundTruthAnalysis) Point(index int) Point {
	return a.points[index].p
}

// Connectivity returns the connectivity of a point to its own reference cluster. Noise points have connectivity 1.
func (a *GroundTruthAnalysis) Connectivity(point int) float64 {
	return a.points[point].connectivity
}

// WorkLabel returns the reference cluster of a point, or NoiseLabel.
func (a *GroundTruthAnalysis) WorkLabel(point int) int {
	return a.workLabel(point)
}

// WorkLabelOf returns the work label an original class label maps to.
func (a *GroundTruthAnalysis) WorkLabelOf(label int) (int, bool) {
	wl, ok := a.workLabels[label]
	return wl, ok
}

// ConnectionMatrix returns the connection strengths between the reference
// clusters, row i holding the connections from cluster i. It is nil without clusters.
func (a *GroundTruthAnalysis) ConnectionMatrix() *mat.Dense {
	n := len(a.clusters)
	if n == 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i, c := range a.clusters {
		m.SetRow(i, c.connections)
	}
	return m
}

// MergeMap maps every original work label to its current work label.
func (a *GroundTruthAnalysis) MergeMap() []int {
	return slices.Clone(a.mergeMap)
}

func (a *GroundTruthAnalysis) NumPoints() int             { return len(a.points) }
func (a *GroundTruthAnalysis) NumNoise() int              { return len(a.noise) }
func (a *GroundTruthAnalysis) NumGroundTruthClasses() int { return a.numGTClasses }
func (a *GroundTruthAnalysis) NumReferenceClusters() int  { return len(a.clusters) }
func (a *GroundTruthAnalysis) ClassSeparability() float64 { return a.classSeparability }
func (a *GroundTruthAnalysis) NoiseSeparability() float64 { return a.noiseSeparability }
func (a *GroundTruthAnalysis) ModelQuality() float64      { return a.modelQuality }
