// Package config defines environment configuration structs and loaders.
package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/tensorplex-labs/clustereval/internal/cmm"
	"github.com/tensorplex-labs/clustereval/internal/horizon"
)

type AppConfig struct {
	CMMEnvConfig
	DemoEnvConfig
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CMMEnvConfig holds the evaluator parameters.
type CMMEnvConfig struct {
	KnnNeighbourhood           int     `env:"CMM_KNN_NEIGHBOURHOOD" envDefault:"2"`
	TauConnection              float64 `env:"CMM_TAU_CONNECTION" envDefault:"0.5"`
	ClusterConnectionMaxPoints int     `env:"CMM_CLUSTER_CONNECTION_MAX_POINTS" envDefault:"0"`
	InclusionThreshold         float64 `env:"CMM_INCLUSION_THRESHOLD" envDefault:"0.5"`
	EnableClassMerge           bool    `env:"CMM_ENABLE_CLASS_MERGE" envDefault:"true"`
	EnableModelError           bool    `env:"CMM_ENABLE_MODEL_ERROR" envDefault:"true"`
	UseExpConnectivity         bool    `env:"CMM_USE_EXP_CONNECTIVITY" envDefault:"false"`
	LambdaConnRefXValue        float64 `env:"CMM_LAMBDA_CONN_REF_X" envDefault:"0.01"`
	LambdaConnX                float64 `env:"CMM_LAMBDA_CONN_X" envDefault:"4"`
	LambdaMissed               float64 `env:"CMM_LAMBDA_MISSED" envDefault:"1"`
	UseHullDistance            bool    `env:"CMM_USE_HULL_DISTANCE" envDefault:"true"`
}

// Options converts the environment values into evaluator options.
func (c CMMEnvConfig) Options() []cmm.Option {
	opts := []cmm.Option{
		cmm.WithKnnNeighbourhood(c.KnnNeighbourhood),
		cmm.WithTauConnection(c.TauConnection),
		cmm.WithClusterConnectionMaxPoints(c.ClusterConnectionMaxPoints),
		cmm.WithInclusionThreshold(c.InclusionThreshold),
		cmm.WithClassMerge(c.EnableClassMerge),
		cmm.WithModelError(c.EnableModelError),
		cmm.WithLambdaMissed(c.LambdaMissed),
		cmm.WithHullDistance(c.UseHullDistance),
	}
	if c.UseExpConnectivity {
		opts = append(opts, cmm.WithExpConnectivity(c.LambdaConnRefXValue, c.LambdaConnX))
	}
	return opts
}

// DemoEnvConfig configures the synthetic horizon stream of the demo command.
type DemoEnvConfig struct {
	Environment    string  `env:"ENVIRONMENT" envDefault:"prod"`
	Horizons       int     `env:"DEMO_HORIZONS" envDefault:"10"`
	Dimensions     int     `env:"DEMO_DIMENSIONS" envDefault:"2"`
	Classes        int     `env:"DEMO_CLASSES" envDefault:"4"`
	PointsPerClass int     `env:"DEMO_POINTS_PER_CLASS" envDefault:"50"`
	NoiseFraction  float64 `env:"DEMO_NOISE_FRACTION" envDefault:"0.1"`
	Spread         float64 `env:"DEMO_SPREAD" envDefault:"0.03"`
	Jitter         float64 `env:"DEMO_JITTER" envDefault:"0.02"`
	Seed           uint64  `env:"DEMO_SEED" envDefault:"1"`
	MetricsAddr    string  `env:"METRICS_ADDR"`
}

// HorizonParams converts the demo values into generator parameters.
func (c DemoEnvConfig) HorizonParams() horizon.Params {
	return horizon.Params{
		Dimensions:     c.Dimensions,
		Classes:        c.Classes,
		PointsPerClass: c.PointsPerClass,
		NoiseFraction:  c.NoiseFraction,
		Spread:         c.Spread,
		Jitter:         c.Jitter,
		Seed:           c.Seed,
	}
}
