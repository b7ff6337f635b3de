package tally

import "time"

// RuntimeStatistics facilitates the retrieval of statistics about a Tally run
type RuntimeStatistics interface {
	// GetStartTime returns the start time of the run
	GetStartTime() time.Time
	// GetRuntime returns the running time of the run
	GetRuntime() time.Duration
	// GetNumChunksEmitted returns the number of Chunks produced by the scanner so far
	GetNumChunksEmitted() int64
	// GetNumChunksProcessed returns the number of Chunks which have been parsed so far
	GetNumChunksProcessed() int64
	// GetNumBytesProcessed returns the number of input bytes which have been parsed so far
	GetNumBytesProcessed() int64
	// GetNumRecordsProcessed returns the number of well-formed records folded so far
	GetNumRecordsProcessed() int64
	// GetNumMalformedRecords returns the number of records skipped as malformed so far
	GetNumMalformedRecords() int64
	// GetCurrentChunkProcessingTime returns a rolling average of chunk processing time
	GetCurrentChunkProcessingTime() time.Duration
	// GetChunkProcessingTimePercentile returns a percentile (0-100] of recent chunk processing times
	GetChunkProcessingTimePercentile(percent float64) (time.Duration, error)
}
