package goraster

import (
	"fmt"
	"math"
)

// StatisticsKey is the property name under which images expose their
// per-band statistics as a []Statistics value.
const StatisticsKey = "statistics"

// Statistics accumulates the minimum, maximum, mean and variance of a
// series of values. NaN values are counted separately and otherwise ignored.
// The zero value is an empty accumulator.
type Statistics struct {
	count    int
	nanCount int
	min, max float64
	mean     float64
	m2       float64 // sum of squared differences from the mean
}

// Accept adds one value
func (s *Statistics) Accept(v float64) {
	if math.IsNaN(v) {
		s.nanCount++
		return
	}
	s.count++
	if s.count == 1 {
		s.min, s.max, s.mean, s.m2 = v, v, v, 0
		return
	}
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (v - s.mean)
}

// Combine merges the values accepted by o into s. The result does not
// depend on the order in which partial statistics are combined, beyond
// floating point rounding.
func (s *Statistics) Combine(o Statistics) {
	s.nanCount += o.nanCount
	if o.count == 0 {
		return
	}
	if s.count == 0 {
		s.count, s.min, s.max, s.mean, s.m2 = o.count, o.min, o.max, o.mean, o.m2
		return
	}
	n := s.count + o.count
	delta := o.mean - s.mean
	s.mean += delta * float64(o.count) / float64(n)
	s.m2 += o.m2 + delta*delta*float64(s.count)*float64(o.count)/float64(n)
	s.min = math.Min(s.min, o.min)
	s.max = math.Max(s.max, o.max)
	s.count = n
}

// Count returns the number of values, NaN excluded
func (s Statistics) Count() int { return s.count }

// CountNaN returns the number of NaN values
func (s Statistics) CountNaN() int { return s.nanCount }

// Minimum returns the smallest value, or NaN if there is none
func (s Statistics) Minimum() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.min
}

// Maximum returns the largest value, or NaN if there is none
func (s Statistics) Maximum() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.max
}

// Mean returns the arithmetic mean, or NaN if there is no value
func (s Statistics) Mean() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.mean
}

// StandardDeviation returns the standard deviation of the values. When
// allPopulation is true the values are the whole population; otherwise they
// are a sample and the deviation is corrected by n-1.
func (s Statistics) StandardDeviation(allPopulation bool) float64 {
	n := s.count
	if !allPopulation {
		n--
	}
	if n <= 0 {
		if s.count == 1 {
			return 0
		}
		return math.NaN()
	}
	return math.Sqrt(math.Max(0, s.m2) / float64(n))
}

func (s Statistics) String() string {
	return fmt.Sprintf("count=%d nan=%d min=%g max=%g mean=%g stddev=%g",
		s.count, s.nanCount, s.Minimum(), s.Maximum(), s.Mean(), s.StandardDeviation(true))
}
