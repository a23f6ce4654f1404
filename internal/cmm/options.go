package cmm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Params struct {
	KnnNeighbourhood           int     // k nearest neighbours used for knn distances
	TauConnection              float64 // merge threshold, 1 disables merging
	ClusterConnectionMaxPoints int     // m strongest points per cluster connection, 0 means k
	UseExpConnectivity         bool
	LambdaConnRefXValue        float64
	LambdaConnX                float64
	InclusionThreshold         float64 // minimal inclusion probability of a covered point
	LambdaMissed               float64 // decay of the hull distance weight for missed points
	EnableClassMerge           bool
	EnableModelError           bool
	UseHullDistance            bool
}

type Option func(*Params)

func WithKnnNeighbourhood(k int) Option {
	return func(p *Params) {
		p.KnnNeighbourhood = k
	}
}

func WithTauConnection(tau float64) Option {
	return func(p *Params) {
		p.TauConnection = tau
	}
}

func WithClusterConnectionMaxPoints(m int) Option {
	return func(p *Params) {
		p.ClusterConnectionMaxPoints = m
	}
}

// WithExpConnectivity switches the connection value to an exponential decay.
// The decay reaches refX at x times the upper knn distance.
func WithExpConnectivity(refX, x float64) Option {
	return func(p *Params) {
		p.UseExpConnectivity = true
		p.LambdaConnRefXValue = refX
		p.LambdaConnX = x
	}
}

func WithInclusionThreshold(threshold float64) Option {
	return func(p *Params) {
		p.InclusionThreshold = threshold
	}
}

func WithLambdaMissed(lambda float64) Option {
	return func(p *Params) {
		p.LambdaMissed = lambda
	}
}

func WithClassMerge(enabled bool) Option {
	return func(p *Params) {
		p.EnableClassMerge = enabled
	}
}

func WithModelError(enabled bool) Option {
	return func(p *Params) {
		p.EnableModelError = enabled
	}
}

func WithHullDistance(enabled bool) Option {
	return func(p *Params) {
		p.UseHullDistance = enabled
	}
}

func WithParams(params Params) Option {
	return func(p *Params) {
		*p = params
	}
}

// maxPoints returns m, the number of strongest points averaged into a cluster connection.
func (p Params) maxPoints() int {
	if p.ClusterConnectionMaxPoints > 0 {
		return p.ClusterConnectionMaxPoints
	}
	return p.KnnNeighbourhood
}

// tau returns the effective merge threshold.
func (p Params) tau() float64 {
	if !p.EnableClassMerge {
		return 1.0
	}
	return p.TauConnection
}

// lambdaConn is the decay rate of the exponential connection value.
func (p Params) lambdaConn() float64 {
	return -math.Log(p.LambdaConnRefXValue) / math.Log(2) / p.LambdaConnX
}

func (p Params) Validate() error {
	switch {
	case p.KnnNeighbourhood < 1:
		return fmt.Errorf("%w: knn neighbourhood must be at least 1, got %d", ErrInvalidParams, p.KnnNeighbourhood)
	case p.ClusterConnectionMaxPoints < 0:
		return fmt.Errorf("%w: cluster connection max points must not be negative, got %d", ErrInvalidParams, p.ClusterConnectionMaxPoints)
	case p.TauConnection <= 0 || p.TauConnection > 1:
		return fmt.Errorf("%w: tau connection must be in (0,1], got %f", ErrInvalidParams, p.TauConnection)
	case p.InclusionThreshold <= 0 || p.InclusionThreshold > 1:
		return fmt.Errorf("%w: inclusion threshold must be in (0,1], got %f", ErrInvalidParams, p.InclusionThreshold)
	case p.LambdaMissed < 0:
		return fmt.Errorf("%w: lambda missed must not be negative, got %f", ErrInvalidParams, p.LambdaMissed)
	}
	if p.UseExpConnectivity {
		if p.LambdaConnRefXValue <= 0 || p.LambdaConnRefXValue >= 1 {
			return fmt.Errorf("%w: lambda connection reference value must be in (0,1), got %f", ErrInvalidParams, p.LambdaConnRefXValue)
		}
		if p.LambdaConnX <= 0 {
			return fmt.Errorf("%w: lambda connection x must be positive, got %f", ErrInvalidParams, p.LambdaConnX)
		}
	}
	return nil
}

// String renders the main parameters, e.g. "k=2;m=2;tauConn=0.5;lambdaMissed=1;".
func (p Params) String() string {
	var b strings.Builder
	b.WriteString("k=" + strconv.Itoa(p.KnnNeighbourhood) + ";")
	if p.UseExpConnectivity {
		b.WriteString("lambdaConnX=" + formatFloat(p.LambdaConnX) + ";")
		b.WriteString("lambdaConn=" + formatFloat(p.lambdaConn()) + ";")
		b.WriteString("lambdaConnRef=" + formatFloat(p.LambdaConnRefXValue) + ";")
	}
	b.WriteString("m=" + strconv.Itoa(p.maxPoints()) + ";")
	b.WriteString("tauConn=" + formatFloat(p.tau()) + ";")
	b.WriteString("lambdaMissed=" + formatFloat(p.LambdaMissed) + ";")
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
