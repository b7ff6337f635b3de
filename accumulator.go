package tally

// An Accumulator maps keys to Statistics. Workers fold the records of one Chunk into a
// fresh Accumulator (the local mapping), and the reducer merges these into a single
// Accumulator (the global mapping). An Accumulator is never accessed concurrently.
type Accumulator interface {
	Accumulate(key []byte, value float64)                       // Accumulate folds a single value into the Statistics for key
	Merge(o Accumulator) error                                  // Merge folds every entry of another Accumulator into this one
	Get(key []byte) (Statistics, bool)                          // Get retrieves the Statistics for key, if present
	Len() int                                                   // Len returns the number of distinct keys
	ForEach(fn func(key string, stats *Statistics) error) error // ForEach iterates over all entries, in no particular order
}

// AccumulatorFactory produces empty Accumulators
type AccumulatorFactory func() Accumulator

// A Sink receives the final global mapping once a run has completed successfully
type Sink interface {
	Write(result Accumulator) error
}
