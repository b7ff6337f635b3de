package executor

import (
	"context"
	"time"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
	"github.com/go-sif/tally/internal/stats"
	"github.com/go-sif/tally/internal/util"
	multierror "github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Executor drives one run: a dispatcher scanning Chunks from a DataSource, a pool of workers
// parsing them into local mappings, and a single reducer merging those into the global mapping
type Executor struct {
	id           string
	conf         *Config
	statsTracker *stats.RunStatistics
	logger       *zap.Logger
}

// CreateExecutor is a factory for Executors
func CreateExecutor(id string, conf *Config, statsTracker *stats.RunStatistics) *Executor {
	return &Executor{
		id:           id,
		conf:         conf,
		statsTracker: statsTracker,
		logger:       conf.Logger.With(zap.String("run", id)),
	}
}

// ID returns the run id of this Executor
func (ex *Executor) ID() string {
	return ex.id
}

// Execute aggregates every record of source into a single Accumulator. If ctx is cancelled, no
// further Chunks are dispatched, in-flight Chunks are drained, and the partial global mapping is
// returned along with ctx.Err(). Any other error is fatal and no Accumulator is returned.
func (ex *Executor) Execute(ctx context.Context, source tally.DataSource) (tally.Accumulator, error) {
	chunks, err := source.Analyze()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to analyze data source")
	}
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	numQueues := 1
	if ex.conf.Dispatch == tally.DispatchPush {
		numQueues = ex.conf.NumWorkers
	}
	queues := make([]chan *tally.Chunk, numQueues)
	for i := range queues {
		queues[i] = make(chan *tally.Chunk, ex.conf.mailboxDepth())
	}
	results := make(chan tally.Accumulator, ex.conf.ResultBuffer)
	inFlight := semaphore.NewWeighted(ex.conf.MaxInFlightBytes)

	// start the reducer, which owns the global mapping
	global := ex.conf.NewAccumulator()
	var received int64
	var mergeErr error
	reduced := make(chan struct{})
	go func() {
		defer close(reduced)
		received, mergeErr = reduce(global, results, cancelRun)
	}()

	// start the workers
	for w := 0; w < ex.conf.NumWorkers; w++ {
		worker := w
		queue := queues[worker%numQueues]
		g.Go(func() error {
			return ex.work(worker, queue, results, inFlight)
		})
	}

	// dispatch chunks until the source is exhausted
	var dispatched int64
	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		var err error
		dispatched, err = ex.dispatch(gctx, chunks, queues, inFlight)
		return err
	})

	err = g.Wait()
	close(results)
	<-reduced
	if mergeErr != nil {
		return nil, mergeErr
	} else if err != nil {
		if ctx.Err() != nil && pkgerrors.Cause(err) == ctx.Err() {
			ex.logger.Warn("Run cancelled, returning partial result",
				zap.Int64("dispatched", dispatched),
				zap.Int64("received", received),
			)
			return global, ctx.Err()
		}
		return nil, err
	}
	if received != dispatched {
		return nil, errors.LostResultsError{Dispatched: dispatched, Received: received}
	}
	return global, nil
}

// dispatch sends each Chunk to a queue, blocking while too many Chunk bytes are in flight
func (ex *Executor) dispatch(ctx context.Context, chunks tally.ChunkMap, queues []chan *tally.Chunk, inFlight *semaphore.Weighted) (int64, error) {
	var dispatched int64
	for chunks.HasNext() {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		chunk, err := chunks.Next()
		if _, ok := err.(errors.NoMoreChunksError); ok {
			// It's ok for a data source to throw this once, as HasNext is just a hint
			break
		} else if err != nil {
			ex.logger.Error("Unable to scan input", zap.Int64("dispatched", dispatched), zap.Error(err))
			return dispatched, err
		}
		weight := ex.conf.chunkWeight(chunk)
		if err := inFlight.Acquire(ctx, weight); err != nil {
			return dispatched, err
		}
		select {
		case queues[dispatched%int64(len(queues))] <- chunk:
			dispatched++
			ex.statsTracker.EmitChunk()
		case <-ctx.Done():
			inFlight.Release(weight)
			return dispatched, ctx.Err()
		}
	}
	ex.logger.Debug("Finished scanning input", zap.Int64("chunks", dispatched))
	return dispatched, nil
}

// work parses Chunks from queue until it is closed, handing a fresh local mapping per Chunk to the reducer
func (ex *Executor) work(worker int, queue <-chan *tally.Chunk, results chan<- tally.Accumulator, inFlight *semaphore.Weighted) error {
	parse := util.SafeParse(worker, ex.conf.Parser)
	logger := ex.logger.With(zap.Int("worker", worker))
	for chunk := range queue {
		start := time.Now()
		local := ex.conf.NewAccumulator()
		summary, err := parse(chunk, local)
		inFlight.Release(ex.conf.chunkWeight(chunk))
		if perr, ok := err.(errors.WorkerPanicError); ok {
			logger.Error("Worker panicked", zap.Int("chunk", chunk.Index), zap.Int64("offset", chunk.Offset), zap.Any("panic", perr.Value))
			return perr
		} else if err != nil {
			// malformed records are skipped, never fatal
			logger.Warn("Skipped malformed records",
				zap.Int("chunk", chunk.Index),
				zap.Int64("offset", chunk.Offset),
				zap.Int64("malformed", summary.Malformed),
				zap.String("diagnostics", formatDiagnostics(err)),
			)
		}
		ex.statsTracker.EndChunk(start, chunk.Len(), summary.Records, summary.Malformed)
		logger.Debug("Processed chunk",
			zap.Int("chunk", chunk.Index),
			zap.Int64("offset", chunk.Offset),
			zap.Int("bytes", chunk.Len()),
			zap.Int64("records", summary.Records),
			zap.Duration("elapsed", time.Since(start)),
		)
		results <- local
	}
	return nil
}

// reduce merges every local mapping from results into global, until results is closed. After a
// failed merge, remaining local mappings are drained and discarded.
func reduce(global tally.Accumulator, results <-chan tally.Accumulator, onError func()) (int64, error) {
	var received int64
	var err error
	for local := range results {
		received++
		if err != nil {
			continue
		}
		if err = global.Merge(local); err != nil {
			onError()
		}
	}
	return received, err
}

func formatDiagnostics(err error) string {
	if merr, ok := err.(*multierror.Error); ok {
		return util.FormatMultiError(merr.Errors)
	}
	return err.Error()
}
