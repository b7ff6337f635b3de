package engine

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/go-sif/tally"
	"github.com/go-sif/tally/internal/executor"
	"github.com/go-sif/tally/internal/stats"
	uuid "github.com/gofrs/uuid"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Result is the outcome of a Tally run
type Result struct {
	ID          string                  // ID uniquely identifies the run, and appears on all of its log lines
	Accumulated tally.Accumulator       // Accumulated is the global mapping
	Statistics  tally.RuntimeStatistics // Statistics describes the run
}

// Run aggregates every record of source. The source is not closed.
//
// If ctx is cancelled, no further Chunks are dispatched, in-flight Chunks are drained, and the
// partial Result is returned together with ctx.Err(). Any other error is fatal, and the Result is nil.
func Run(ctx context.Context, source tally.DataSource, opts *Options) (*Result, error) {
	if source == nil {
		return nil, pkgerrors.New("DataSource cannot be nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	opts = CloneOptions(opts)
	if err := ensureDefaultOptionsValues(opts); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to generate run id")
	}
	statsTracker := &stats.RunStatistics{}
	ex := executor.CreateExecutor(id.String(), &executor.Config{
		NumWorkers:       opts.NumWorkers,
		Dispatch:         opts.Dispatch,
		QueueDepth:       opts.QueueDepth,
		ResultBuffer:     opts.ResultBuffer,
		MaxInFlightBytes: opts.MaxInFlightBytes,
		Parser:           opts.Parser,
		NewAccumulator:   opts.NewAccumulator,
		Logger:           opts.Logger,
	}, statsTracker)
	logger := opts.Logger.With(zap.String("run", ex.ID()))
	logger.Info("Starting run",
		zap.Int("workers", opts.NumWorkers),
		zap.String("dispatch", opts.Dispatch),
		zap.Bool("streaming", source.IsStreaming()),
		zap.String("max_in_flight", humanize.IBytes(uint64(opts.MaxInFlightBytes))),
	)
	statsTracker.Start()
	accumulated, err := ex.Execute(ctx, source)
	statsTracker.Finish()
	if accumulated == nil {
		logger.Error("Run failed", zap.Error(err))
		return nil, err
	}
	logSummary(logger, accumulated, statsTracker)
	return &Result{
		ID:          ex.ID(),
		Accumulated: accumulated,
		Statistics:  statsTracker,
	}, err
}

// RunToSink runs to completion and hands the global mapping to sink. A cancelled run's partial
// Result is returned without being written.
func RunToSink(ctx context.Context, source tally.DataSource, opts *Options, sink tally.Sink) (*Result, error) {
	result, err := Run(ctx, source, opts)
	if err != nil {
		return result, err
	}
	if err := sink.Write(result.Accumulated); err != nil {
		return result, pkgerrors.Wrap(err, "unable to write result")
	}
	return result, nil
}

func logSummary(logger *zap.Logger, accumulated tally.Accumulator, rs tally.RuntimeStatistics) {
	fields := []zap.Field{
		zap.Int("keys", accumulated.Len()),
		zap.Int64("records", rs.GetNumRecordsProcessed()),
		zap.Int64("malformed", rs.GetNumMalformedRecords()),
		zap.Int64("chunks", rs.GetNumChunksProcessed()),
		zap.String("bytes", humanize.IBytes(uint64(rs.GetNumBytesProcessed()))),
		zap.Duration("runtime", rs.GetRuntime()),
	}
	if p50, err := rs.GetChunkProcessingTimePercentile(50); err == nil {
		fields = append(fields, zap.Duration("chunk_p50", p50))
	}
	if p99, err := rs.GetChunkProcessingTimePercentile(99); err == nil {
		fields = append(fields, zap.Duration("chunk_p99", p99))
	}
	logger.Info("Finished run", fields...)
}
