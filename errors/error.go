package errors

import (
	"fmt"
	"strconv"
)

// NoMoreChunksError occurs when there are no more Chunks in a ChunkMap
type NoMoreChunksError struct{}

// Error returns a textual representation of this NoMoreChunksError
func (e NoMoreChunksError) Error() string {
	return "No more chunks"
}

// MalformedRecordError describes a record which was skipped during parsing
type MalformedRecordError struct {
	Offset int64  // Offset is the position of the record in the input
	Line   []byte // Line holds the offending bytes, without the record separator
	Reason string
}

// Error returns a textual representation of this MalformedRecordError
func (e MalformedRecordError) Error() string {
	return fmt.Sprintf("Malformed record at offset %d (%s): %s", e.Offset, e.Reason, strconv.Quote(string(e.Line)))
}

// WorkerPanicError occurs when a worker panics while processing a Chunk
type WorkerPanicError struct {
	Worker int
	Chunk  int
	Value  interface{}
	Trace  string
}

// Error returns a textual representation of this WorkerPanicError
func (e WorkerPanicError) Error() string {
	return fmt.Sprintf("Worker %d panicked while processing chunk %d: %v\n%s", e.Worker, e.Chunk, e.Value, e.Trace)
}

// LostResultsError occurs when the reducer receives fewer local mappings than Chunks were dispatched
type LostResultsError struct {
	Dispatched int64
	Received   int64
}

// Error returns a textual representation of this LostResultsError
func (e LostResultsError) Error() string {
	return fmt.Sprintf("Reducer received %d local mappings for %d dispatched chunks", e.Received, e.Dispatched)
}

// IncompatibleAccumulatorError occurs when Accumulators of different types are merged
type IncompatibleAccumulatorError struct {
	Expected string
	Actual   string
}

// Error returns a textual representation of this IncompatibleAccumulatorError
func (e IncompatibleAccumulatorError) Error() string {
	return fmt.Sprintf("Incoming accumulator is a %s, not a %s", e.Actual, e.Expected)
}
