package stats

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	pkgerrors "github.com/pkg/errors"
)

const statisticRollingWindows = 64

// RunStatistics contains statistics about a running Tally pipeline. It is safe for concurrent use.
type RunStatistics struct {
	lock                    sync.Mutex
	started                 bool
	finished                bool
	startTime               time.Time
	totalRuntime            time.Duration
	chunksEmitted           int64
	chunksProcessed         int64
	bytesProcessed          int64
	recordsProcessed        int64
	malformedRecords        int64
	recentChunkRuntimes     []float64 // for rolling statistics of recent chunk processing times
	recentChunkRuntimesHead int
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
		rs.recentChunkRuntimes = make([]float64, 0, statisticRollingWindows)
	}
}

// Finish completes statistics tracking
func (rs *RunStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.started && !rs.finished {
		rs.finished = true
		rs.totalRuntime = time.Since(rs.startTime)
	}
}

// EmitChunk tracks the production of a Chunk by the scanner
func (rs *RunStatistics) EmitChunk() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.chunksEmitted++
}

// EndChunk tracks the end of the processing of a Chunk which began at start
func (rs *RunStatistics) EndChunk(start time.Time, numBytes int, records int64, malformed int64) {
	elapsed := float64(time.Since(start).Nanoseconds())
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if len(rs.recentChunkRuntimes) < cap(rs.recentChunkRuntimes) {
		rs.recentChunkRuntimes = append(rs.recentChunkRuntimes, elapsed)
	} else if len(rs.recentChunkRuntimes) > 0 {
		rs.recentChunkRuntimes[rs.recentChunkRuntimesHead] = elapsed
		rs.recentChunkRuntimesHead = (rs.recentChunkRuntimesHead + 1) % len(rs.recentChunkRuntimes)
	}
	rs.chunksProcessed++
	rs.bytesProcessed += int64(numBytes)
	rs.recordsProcessed += records
	rs.malformedRecords += malformed
}

// GetStartTime returns the start time of the Tally pipeline
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.startTime
}

// GetRuntime returns the running time of the Tally pipeline
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.finished {
		return rs.totalRuntime
	} else if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetNumChunksEmitted returns the number of Chunks produced by the scanner so far
func (rs *RunStatistics) GetNumChunksEmitted() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.chunksEmitted
}

// GetNumChunksProcessed returns the number of Chunks which have been parsed so far
func (rs *RunStatistics) GetNumChunksProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.chunksProcessed
}

// GetNumBytesProcessed returns the number of input bytes which have been parsed so far
func (rs *RunStatistics) GetNumBytesProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.bytesProcessed
}

// GetNumRecordsProcessed returns the number of well-formed records folded so far
func (rs *RunStatistics) GetNumRecordsProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.recordsProcessed
}

// GetNumMalformedRecords returns the number of records skipped as malformed so far
func (rs *RunStatistics) GetNumMalformedRecords() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.malformedRecords
}

// GetCurrentChunkProcessingTime returns a rolling average of chunk processing time
func (rs *RunStatistics) GetCurrentChunkProcessingTime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if len(rs.recentChunkRuntimes) == 0 {
		return 0
	}
	mean, err := stats.Mean(rs.recentChunkRuntimes)
	if err != nil {
		return 0
	}
	return time.Duration(mean)
}

// GetChunkProcessingTimePercentile returns a percentile (0-100] of recent chunk processing times
func (rs *RunStatistics) GetChunkProcessingTimePercentile(percent float64) (time.Duration, error) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if len(rs.recentChunkRuntimes) == 0 {
		return 0, pkgerrors.New("No chunks have been processed")
	}
	// Percentile sorts a copy, so the rolling window is left intact
	p, err := stats.Percentile(rs.recentChunkRuntimes, percent)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "unable to compute percentile %v of chunk processing times", percent)
	}
	return time.Duration(p), nil
}
