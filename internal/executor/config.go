package executor

import (
	"github.com/go-sif/tally"
	"go.uber.org/zap"
)

// Config configures the execution of a run. Every field is required.
type Config struct {
	NumWorkers       int                      // the number of parallel workers
	Dispatch         tally.Dispatch           // how Chunks are assigned to workers
	QueueDepth       int                      // the total number of dispatched Chunks which may wait for a worker
	ResultBuffer     int                      // the number of local mappings which may wait for the reducer
	MaxInFlightBytes int64                    // the number of Chunk bytes which may be dispatched but not yet parsed
	Parser           tally.RecordParser       // folds the records of a Chunk into a local mapping
	NewAccumulator   tally.AccumulatorFactory // produces local and global mappings
	Logger           *zap.Logger
}

// mailboxDepth returns the capacity of each queue
func (c *Config) mailboxDepth() int {
	if c.Dispatch != tally.DispatchPush {
		return c.QueueDepth
	}
	depth := c.QueueDepth / c.NumWorkers
	if depth < 1 {
		depth = 1
	}
	return depth
}

// chunkWeight returns the number of semaphore units held by a dispatched Chunk
func (c *Config) chunkWeight(chunk *tally.Chunk) int64 {
	weight := int64(chunk.Len())
	if weight > c.MaxInFlightBytes {
		// a single oversized Chunk may always proceed on its own
		weight = c.MaxInFlightBytes
	}
	if weight < 1 {
		weight = 1
	}
	return weight
}
