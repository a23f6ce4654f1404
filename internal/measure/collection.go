// Package measure collects per-horizon evaluation measures and reports them.
package measure

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownMeasure = errors.New("unknown measure")

type series struct {
	values    []float64
	corrupted bool
}

// Collection keeps the values of a fixed set of named measures over a stream of horizons.
// A measure that received a NaN or an empty value is corrupted and has no mean.
type Collection struct {
	names  []string
	series map[string]*series
}

func NewCollection(names ...string) *Collection {
	c := &Collection{
		names:  slices.Clone(names),
		series: make(map[string]*series, len(names)),
	}
	for _, name := range names {
		c.series[name] = &series{}
	}
	return c
}

func (c *Collection) get(name string) (*series, error) {
	s, ok := c.series[name]
	if !ok {
		return nil, fmt.Errorf("measure %q: %w", name, ErrUnknownMeasure)
	}
	return s, nil
}

// Add appends value to the named measure.
func (c *Collection) Add(name string, value float64) error {
	s, err := c.get(name)
	if err != nil {
		return err
	}
	if math.IsNaN(value) {
		log.Debug().Msgf("NaN for %s", name)
		s.corrupted = true
	}
	s.values = append(s.values, value)
	return nil
}

// AddAll appends one value per measure. Nothing is added if any name is unknown.
func (c *Collection) AddAll(values map[string]float64) error {
	var errs []error
	for name := range values {
		if _, err := c.get(name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	for name, v := range values {
		if err := c.Add(name, v); err != nil {
			return err
		}
	}
	return nil
}

// AddEmpty records a horizon whose evaluation failed for every measure.
func (c *Collection) AddEmpty() {
	for _, s := range c.series {
		s.values = append(s.values, math.NaN())
		s.corrupted = true
	}
}

func (c *Collection) Names() []string { return slices.Clone(c.names) }

func (c *Collection) Count(name string) int {
	s, err := c.get(name)
	if err != nil {
		return 0
	}
	return len(s.values)
}

func (c *Collection) Corrupted(name string) bool {
	s, err := c.get(name)
	return err == nil && s.corrupted
}

// Values returns a copy of the recorded values of the named measure.
func (c *Collection) Values(name string) []float64 {
	s, err := c.get(name)
	if err != nil {
		return nil
	}
	return slices.Clone(s.values)
}

// Last returns the most recent value, or NaN.
func (c *Collection) Last(name string) float64 {
	s, err := c.get(name)
	if err != nil || len(s.values) == 0 {
		return math.NaN()
	}
	return s.values[len(s.values)-1]
}

// Mean returns NaN for unknown, empty or corrupted measures.
func (c *Collection) Mean(name string) float64 {
	s, err := c.get(name)
	if err != nil || s.corrupted || len(s.values) == 0 {
		return math.NaN()
	}
	return stat.Mean(s.values, nil)
}

// Min ignores NaN values.
func (c *Collection) Min(name string) float64 {
	valid := c.valid(name)
	if len(valid) == 0 {
		return math.NaN()
	}
	return floats.Min(valid)
}

// Max ignores NaN values.
func (c *Collection) Max(name string) float64 {
	valid := c.valid(name)
	if len(valid) == 0 {
		return math.NaN()
	}
	return floats.Max(valid)
}

// Median averages the two middle values for an even count.
func (c *Collection) Median(name string) float64 {
	sorted := c.sorted(name)
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[(n-1)/2] + sorted[(n-1)/2+1]) / 2
	}
}

// LowerQuartile needs at least twelve values.
func (c *Collection) LowerQuartile(name string) float64 {
	sorted := c.sorted(name)
	if len(sorted) < 12 {
		return math.NaN()
	}
	return sorted[int(math.Round(float64(len(sorted))*0.25))]
}

// UpperQuartile needs at least twelve values.
func (c *Collection) UpperQuartile(name string) float64 {
	sorted := c.sorted(name)
	if len(sorted) < 12 {
		return math.NaN()
	}
	return sorted[int(math.Round(float64(len(sorted))*0.75-1))]
}

// Means returns the mean of every measure.
func (c *Collection) Means() map[string]float64 {
	out := make(map[string]float64, len(c.names))
	for _, name := range c.names {
		out[name] = c.Mean(name)
	}
	return out
}

func (c *Collection) valid(name string) []float64 {
	s, err := c.get(name)
	if err != nil {
		return nil
	}
	valid := make([]float64, 0, len(s.values))
	for _, v := range s.values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	return valid
}

func (c *Collection) sorted(name string) []float64 {
	valid := c.valid(name)
	slices.Sort(valid)
	return valid
}
