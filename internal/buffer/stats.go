package buffer

import (
	"fmt"
	"math"
)

// Stats is a set of statistical properties of a stream of numbers.
type Stats struct {
	count          int
	sum            float64
	last           float64
	min, max       float64
	mean, dSquared float64
}

// NewStats creates a new Stats.
func NewStats() *Stats {
	return &Stats{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
}

// Push adds another element to the set.
func (s *Stats) Push(v ...float64) {
	for _, f := range v {
		s.push(f)
	}
}

func (s *Stats) push(v float64) {
	s.count++
	s.sum += v
	diff := (v - s.mean) / float64(s.count)
	mean := s.mean + diff
	squaredDiff := (v - mean) * (v - s.mean)
	s.dSquared += squaredDiff
	s.mean = mean

	if s.min > v {
		s.min = v
	}

	if s.max < v {
		s.max = v
	}

	s.last = v
}

// Avg returns the average value of the set.
func (s Stats) Avg() float64 {
	return s.mean
}

// Sum returns the sum of all values.
func (s Stats) Sum() float64 {
	return s.sum
}

// Count returns the number of elements.
func (s Stats) Count() int {
	return s.count
}

// Last returns the last value pushed.
func (s Stats) Last() float64 {
	return s.last
}

// Min returns the smallest value, or 0 for an empty set.
func (s Stats) Min() float64 {
	if s.count == 0 {
		return 0
	}
	return s.min
}

// Max returns the largest value, or 0 for an empty set.
func (s Stats) Max() float64 {
	if s.count == 0 {
		return 0
	}
	return s.max
}

// Variance is the mathematical variance of the set.
func (s Stats) Variance() float64 {
	if s.count == 0 {
		return 0
	}
	return s.dSquared / float64(s.count)
}

// StDev is the standard deviation of the set.
func (s Stats) StDev() float64 {
	return math.Sqrt(s.Variance())
}

// Summary is the exported view of a Stats.
type Summary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	StDev float64 `json:"stdev"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Last  float64 `json:"last"`
}

// Summary returns the current values of the set.
func (s Stats) Summary() Summary {
	return Summary{
		Count: s.count,
		Avg:   s.Avg(),
		StDev: s.StDev(),
		Min:   s.Min(),
		Max:   s.Max(),
		Last:  s.last,
	}
}

// StatsCollector is a collection of named Stats variables.
// This enables multi-dimensional tracking.
type StatsCollector struct {
	names []string
	stats []*Stats
}

// NewStatsCollector creates a new Stats collector with one dimension per name.
func NewStatsCollector(names ...string) *StatsCollector {
	stats := make([]*Stats, len(names))
	for i := range names {
		stats[i] = NewStats()
	}
	return &StatsCollector{
		names: names,
		stats: stats,
	}
}

// Push pushes each value to the corresponding dimension.
func (sc *StatsCollector) Push(v ...float64) error {
	if len(v) != len(sc.stats) {
		return fmt.Errorf("inconsistent dimensions %d vs %d", len(v), len(sc.stats))
	}
	for i := 0; i < len(sc.stats); i++ {
		sc.stats[i].Push(v[i])
	}
	return nil
}

// Size returns the number of pushes.
func (sc *StatsCollector) Size() int {
	if len(sc.stats) == 0 {
		return 0
	}
	// we expect all stats to have the same size
	return sc.stats[0].count
}

// Summary returns the summary of each dimension by name.
func (sc *StatsCollector) Summary() map[string]Summary {
	ss := make(map[string]Summary, len(sc.names))
	for i, name := range sc.names {
		ss[name] = sc.stats[i].Summary()
	}
	return ss
}
