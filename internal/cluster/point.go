// Package cluster provides the point and cluster representations evaluated by cmm.
package cluster

import (
	"maps"
	"slices"

	"github.com/tensorplex-labs/clustereval/internal/cmm"
)

// DataPoint is an observation of the stream with its true class label.
type DataPoint struct {
	position    []float64
	label       int
	weight      float64
	timestamp   int64
	diagnostics map[string]any
}

func NewDataPoint(position []float64, label int, weight float64, timestamp int64) *DataPoint {
	return &DataPoint{
		position:    slices.Clone(position),
		label:       label,
		weight:      weight,
		timestamp:   timestamp,
		diagnostics: make(map[string]any),
	}
}

// NewNoisePoint returns a point without a ground-truth class.
func NewNoisePoint(position []float64, weight float64, timestamp int64) *DataPoint {
	return NewDataPoint(position, cmm.NoiseLabel, weight, timestamp)
}

func (p *DataPoint) Position() []float64 { return p.position }
func (p *DataPoint) Label() int          { return p.label }
func (p *DataPoint) Weight() float64     { return p.weight }
func (p *DataPoint) Timestamp() int64    { return p.timestamp }
func (p *DataPoint) IsNoise() bool       { return p.label == cmm.NoiseLabel }

func (p *DataPoint) SetDiagnostic(name string, value any) {
	p.diagnostics[name] = value
}

// Diagnostic returns a value written by the evaluation.
func (p *DataPoint) Diagnostic(name string) (any, bool) {
	v, ok := p.diagnostics[name]
	return v, ok
}

// Diagnostics returns a copy of all values written by the evaluation.
func (p *DataPoint) Diagnostics() map[string]any {
	return maps.Clone(p.diagnostics)
}

// Points converts data points to the interface slice consumed by cmm.
func Points(points []*DataPoint) []cmm.Point {
	out := make([]cmm.Point, len(points))
	for i, p := range points {
		out[i] = p
	}
	return out
}
