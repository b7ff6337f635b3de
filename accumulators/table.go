package accumulators

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
)

const defaultTableCapacity = 512

// TableFactory returns a factory for Tables pre-sized for the given number of keys
func TableFactory(capacity int) tally.AccumulatorFactory {
	return func() tally.Accumulator {
		return NewTable(capacity)
	}
}

type tableEntry struct {
	hash  uint64
	key   string
	stats tally.Statistics
	used  bool
}

// Table is an Accumulator backed by an open-addressing hash table keyed by the xxhash
// of the raw key bytes. Looking up an existing key does not allocate.
type Table struct {
	entries []tableEntry
	mask    uint64
	size    int
}

// NewTable returns an empty Table with room for at least capacity keys before growing
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = defaultTableCapacity
	}
	// keep the load factor under 3/4
	slots := 16
	for slots*3 < capacity*4 {
		slots <<= 1
	}
	return &Table{
		entries: make([]tableEntry, slots),
		mask:    uint64(slots - 1),
	}
}

// Accumulate folds a single value into the Statistics for key
func (t *Table) Accumulate(key []byte, value float64) {
	t.ensureCapacity()
	hash := xxhash.Sum64(key)
	e := t.slot(hash, key)
	if !e.used {
		e.used = true
		e.hash = hash
		e.key = string(key)
		e.stats = tally.NewStatistics()
		t.size++
	}
	e.stats.Add(value)
}

// Merge folds every entry of another Table into this one
func (t *Table) Merge(o tally.Accumulator) error {
	ot, ok := o.(*Table)
	if !ok {
		return errors.IncompatibleAccumulatorError{Expected: fmt.Sprintf("%T", t), Actual: fmt.Sprintf("%T", o)}
	}
	for i := range ot.entries {
		src := &ot.entries[i]
		if !src.used {
			continue
		}
		t.ensureCapacity()
		e := t.slotString(src.hash, src.key)
		if !e.used {
			e.used = true
			e.hash = src.hash
			e.key = src.key
			e.stats = tally.NewStatistics()
			t.size++
		}
		e.stats.Merge(&src.stats)
	}
	return nil
}

// Get retrieves the Statistics for key, if present
func (t *Table) Get(key []byte) (tally.Statistics, bool) {
	if t.entries == nil {
		return tally.Statistics{}, false
	}
	e := t.slot(xxhash.Sum64(key), key)
	if !e.used {
		return tally.Statistics{}, false
	}
	return e.stats, true
}

// Len returns the number of distinct keys in this Table
func (t *Table) Len() int {
	return t.size
}

// ForEach iterates over all entries in this Table, in slot order
func (t *Table) ForEach(fn func(key string, stats *tally.Statistics) error) error {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.used {
			continue
		}
		if err := fn(e.key, &e.stats); err != nil {
			return err
		}
	}
	return nil
}

// slot returns the entry holding key, or the empty entry where it belongs
func (t *Table) slot(hash uint64, key []byte) *tableEntry {
	for i := hash & t.mask; ; i = (i + 1) & t.mask {
		e := &t.entries[i]
		if !e.used || (e.hash == hash && e.key == string(key)) {
			return e
		}
	}
}

// slotString is slot for keys which are already strings
func (t *Table) slotString(hash uint64, key string) *tableEntry {
	for i := hash & t.mask; ; i = (i + 1) & t.mask {
		e := &t.entries[i]
		if !e.used || (e.hash == hash && e.key == key) {
			return e
		}
	}
}

// ensureCapacity grows the table if one more insertion would exceed a 3/4 load factor
func (t *Table) ensureCapacity() {
	if t.entries == nil {
		*t = *NewTable(defaultTableCapacity)
		return
	}
	if (t.size+1)*4 <= len(t.entries)*3 {
		return
	}
	old := t.entries
	t.entries = make([]tableEntry, len(old)*2)
	t.mask = uint64(len(t.entries) - 1)
	for i := range old {
		if !old[i].used {
			continue
		}
		e := t.slotString(old[i].hash, old[i].key)
		*e = old[i]
	}
}
