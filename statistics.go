package tally

import "math"

// Statistics summarizes every value folded for a single key.
// Whenever Count > 0, Min <= Max.
type Statistics struct {
	Min   float64
	Max   float64
	Sum   float64
	Count uint64
}

// NewStatistics returns the identity Statistics, into which no values have been folded
func NewStatistics() Statistics {
	return Statistics{
		Min: math.Inf(1),
		Max: math.Inf(-1),
	}
}

// Add folds a single value into these Statistics
func (s *Statistics) Add(v float64) {
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.Count++
}

// Merge folds another Statistics into this one. Merge is associative and commutative,
// up to floating-point summation order.
func (s *Statistics) Merge(o *Statistics) {
	if o.Count == 0 {
		return
	}
	if o.Min < s.Min {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
	s.Sum += o.Sum
	s.Count += o.Count
}

// Mean returns Sum/Count, or NaN if no values have been folded
func (s *Statistics) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}
