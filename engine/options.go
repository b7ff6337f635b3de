package engine

import (
	"runtime"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/accumulators"
	"github.com/go-sif/tally/datasource/parser/dsv"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// nominalChunkSize is the Chunk size assumed when defaulting MaxInFlightBytes
const nominalChunkSize = 1 << 20

// Options configure a Tally run
type Options struct {
	NumWorkers       int                      // the number of parallel workers. Defaults to GOMAXPROCS.
	Dispatch         tally.Dispatch           // DispatchPull (default) or DispatchPush
	QueueDepth       int                      // the number of dispatched Chunks which may wait for a worker. Defaults to 2 * NumWorkers.
	ResultBuffer     int                      // the number of local mappings which may wait for the reducer. Defaults to NumWorkers.
	MaxInFlightBytes int64                    // the number of Chunk bytes which may be dispatched but not yet parsed. Defaults to 4 * QueueDepth MiB.
	MaxDiagnostics   int                      // the number of malformed records described per Chunk by the default Parser
	Parser           tally.RecordParser       // Defaults to a dsv.Parser with ; and \n separators
	NewAccumulator   tally.AccumulatorFactory // Defaults to accumulators.TableFactory(0)
	Logger           *zap.Logger              // Defaults to a no-op logger
}

// CloneOptions makes a copy of an Options
func CloneOptions(opts *Options) *Options {
	return &Options{
		NumWorkers:       opts.NumWorkers,
		Dispatch:         opts.Dispatch,
		QueueDepth:       opts.QueueDepth,
		ResultBuffer:     opts.ResultBuffer,
		MaxInFlightBytes: opts.MaxInFlightBytes,
		MaxDiagnostics:   opts.MaxDiagnostics,
		Parser:           opts.Parser,
		NewAccumulator:   opts.NewAccumulator,
		Logger:           opts.Logger,
	}
}

func ensureDefaultOptionsValues(opts *Options) error {
	// reject options which cannot be defaulted
	if opts.NumWorkers < 0 {
		return pkgerrors.Errorf("Options.NumWorkers must not be negative, was %d", opts.NumWorkers)
	}
	switch opts.Dispatch {
	case "":
		opts.Dispatch = tally.DispatchPull
	case tally.DispatchPull, tally.DispatchPush:
	default:
		return pkgerrors.Errorf("Options.Dispatch must be \"%s\" or \"%s\", was \"%s\"", tally.DispatchPull, tally.DispatchPush, opts.Dispatch)
	}
	// default certain options if not supplied
	if opts.NumWorkers == 0 {
		opts.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 2 * opts.NumWorkers
	}
	if opts.ResultBuffer <= 0 {
		opts.ResultBuffer = opts.NumWorkers
	}
	if opts.MaxInFlightBytes <= 0 {
		opts.MaxInFlightBytes = 4 * int64(opts.QueueDepth) * nominalChunkSize
	}
	if opts.Parser == nil {
		opts.Parser = dsv.CreateParser(&dsv.ParserConf{MaxDiagnostics: opts.MaxDiagnostics})
	}
	if opts.NewAccumulator == nil {
		opts.NewAccumulator = accumulators.TableFactory(0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return nil
}
