package accumulators

import (
	"fmt"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
)

// MapFactory returns a factory for Maps
func MapFactory() tally.AccumulatorFactory {
	return func() tally.Accumulator {
		return NewMap()
	}
}

// Map is an Accumulator backed by a built-in Go map. It allocates a string for every record,
// and is slower than a Table, but simple enough to serve as a reference.
type Map struct {
	entries map[string]*tally.Statistics
}

// NewMap returns an empty Map
func NewMap() *Map {
	return &Map{entries: make(map[string]*tally.Statistics)}
}

// Accumulate folds a single value into the Statistics for key
func (m *Map) Accumulate(key []byte, value float64) {
	s, ok := m.entries[string(key)]
	if !ok {
		stats := tally.NewStatistics()
		s = &stats
		m.entries[string(key)] = s
	}
	s.Add(value)
}

// Merge merges another Map into this one
func (m *Map) Merge(o tally.Accumulator) error {
	om, ok := o.(*Map)
	if !ok {
		return errors.IncompatibleAccumulatorError{Expected: fmt.Sprintf("%T", m), Actual: fmt.Sprintf("%T", o)}
	}
	for k, os := range om.entries {
		s, ok := m.entries[k]
		if !ok {
			stats := tally.NewStatistics()
			s = &stats
			m.entries[k] = s
		}
		s.Merge(os)
	}
	return nil
}

// Get retrieves the Statistics for key, if present
func (m *Map) Get(key []byte) (tally.Statistics, bool) {
	s, ok := m.entries[string(key)]
	if !ok {
		return tally.Statistics{}, false
	}
	return *s, true
}

// Len returns the number of distinct keys
func (m *Map) Len() int {
	return len(m.entries)
}

// ForEach iterates over all entries, in no particular order
func (m *Map) ForEach(fn func(key string, stats *tally.Statistics) error) error {
	for k, s := range m.entries {
		if err := fn(k, s); err != nil {
			return err
		}
	}
	return nil
}
