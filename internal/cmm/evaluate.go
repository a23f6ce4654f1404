// Package cmm implements the Cluster Mapping Measure, a quality score for
// clusterings of evolving data streams. A ground-truth analysis merges
// classes that are not separable and weighs every point by its connectivity
// to its class; found clusters are then matched onto the analysed classes and
// missed, misplaced and noise errors are aggregated per horizon.
package cmm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/clustereval/internal/utils/logger"
)

// Evaluator scores horizons with a fixed set of parameters. It keeps no
// per-horizon state and can be shared between goroutines.
type Evaluator struct {
	Params Params
}

func NewEvaluator(opts ...Option) (*Evaluator, error) {
	params := DefaultParams()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{Params: params}, nil
}

// Evaluate scores the found clustering of one horizon against its ground truth.
func (e *Evaluator) Evaluate(found []Cluster, gt []GroundTruthCluster, points []Point) (Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger.Sugar().Debugw("Evaluating horizon", "run", runID, "params", e.Params.String(),
		"points", len(points), "found", len(found), "groundTruth", len(gt))

	analysis, err := NewGroundTruthAnalysis(gt, points, e.Params)
	if err != nil {
		return Result{}, fmt.Errorf("analyse ground truth: %w", err)
	}

	matcher, err := NewClusterMatcher(found, analysis, e.Params)
	if err != nil {
		return Result{}, fmt.Errorf("match clusters: %w", err)
	}

	res := matcher.Score()
	log.Debug().
		Str("run", runID).
		Float64("cmm", res.CMM).
		Int("referenceClusters", res.NumReferenceClusters).
		Int("errors", res.ErrorCount).
		Msgf("Evaluated horizon in %v", time.Since(startTime))
	return res, nil
}
