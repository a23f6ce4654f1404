package measure

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clustereval"

// Exporter publishes the latest measures of evaluated horizons as Prometheus metrics.
type Exporter struct {
	measures  *prometheus.GaugeVec
	horizons  prometheus.Counter
	failures  prometheus.Counter
	corrupted *prometheus.CounterVec
}

// NewExporter registers the evaluation metrics with reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	factory := promauto.With(reg)
	return &Exporter{
		measures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "measure",
				Help:      "Latest value of an evaluation measure",
			},
			[]string{"measure"},
		),
		horizons: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "horizons_total",
				Help:      "Total evaluated horizons",
			},
		),
		failures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "horizon_failures_total",
				Help:      "Total horizons whose evaluation failed",
			},
		),
		corrupted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "measure_nan_total",
				Help:      "Total NaN values per measure",
			},
			[]string{"measure"},
		),
	}
}

// Observe records the measures of one evaluated horizon. NaN values leave the gauge untouched.
func (e *Exporter) Observe(values map[string]float64) {
	e.horizons.Inc()
	for name, v := range values {
		if math.IsNaN(v) {
			e.corrupted.WithLabelValues(name).Inc()
			continue
		}
		e.measures.WithLabelValues(name).Set(v)
	}
}

// ObserveFailure records a horizon whose evaluation returned an error.
func (e *Exporter) ObserveFailure() {
	e.horizons.Inc()
	e.failures.Inc()
}
