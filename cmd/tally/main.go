package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/go-sif/tally/config"
	"github.com/go-sif/tally/datasource/file"
	"github.com/go-sif/tally/engine"
	"github.com/go-sif/tally/logging"
	"github.com/go-sif/tally/report"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/urfave/cli.v2"
)

const (
	Version = "0.1.0"
)

const (
	argConfigFile      = "config-file"
	argWorkers         = "workers"
	argDispatch        = "dispatch"
	argQueueDepth      = "queue-depth"
	argMaxInFlight     = "max-in-flight"
	argMode            = "mode"
	argChunkSize       = "chunk-size"
	argReadAhead       = "read-ahead"
	argFieldSeparator  = "field-separator"
	argRecordSeparator = "record-separator"
	argFormat          = "format"
	argPrecision       = "precision"
	argUnsorted        = "unsorted"
	argLogLevel        = "log-level"
)

func main() {
	app := &cli.App{
		Name:    "tally",
		Version: Version,
		Usage:   "Per-key min/mean/max of key;value records",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Aggregate a file (or - for standard input) and print one line per key",
				UsageText: "tally run [command options] <file|->",
				Action:    runTally,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: argConfigFile, Usage: "YAML configuration file path"},
					&cli.IntFlag{Name: argWorkers, Usage: "number of parallel workers (default: number of CPUs)"},
					&cli.StringFlag{Name: argDispatch, Usage: "chunk assignment: pull (shared queue) or push (round-robin mailboxes)"},
					&cli.IntFlag{Name: argQueueDepth, Usage: "number of chunks which may wait for a worker"},
					&cli.StringFlag{Name: argMaxInFlight, Usage: "chunk bytes which may be dispatched but not yet parsed, e.g. 256MiB"},
					&cli.StringFlag{Name: argMode, Usage: "input mode: auto, mmap or stream"},
					&cli.StringFlag{Name: argChunkSize, Usage: "chunk stride or read size, e.g. 1MiB"},
					&cli.IntFlag{Name: argReadAhead, Usage: "number of read-ahead buffers when streaming"},
					&cli.StringFlag{Name: argFieldSeparator, Usage: "byte separating keys from values"},
					&cli.StringFlag{Name: argRecordSeparator, Usage: "byte terminating records"},
					&cli.StringFlag{Name: argFormat, Usage: "report format: brc, lines or verbose"},
					&cli.IntFlag{Name: argPrecision, Usage: "decimal places in the report"},
					&cli.BoolFlag{Name: argUnsorted, Usage: "do not sort the report by key"},
					&cli.StringFlag{Name: argLogLevel, Usage: "trace, debug, info, warn, error or fatal"},
				},
			},
		},
	}

	sort.Sort(cli.FlagsByName(app.Commands[0].Flags))
	sort.Sort(cli.CommandsByName(app.Commands))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tally: %v\n", err)
		os.Exit(1)
	}
}

func runTally(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return pkgerrors.New("Expected exactly one input file (or - for standard input)")
	}
	path := c.Args().First()

	cfg := config.Default()
	if cfgFile := c.String(argConfigFile); cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := applyArgsToCfg(c, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Level())
	if err != nil {
		return pkgerrors.Wrap(err, "unable to create logger")
	}
	defer logger.Sync()

	source, err := file.Open(path, cfg.SourceConf())
	if err != nil {
		return err
	}
	defer source.Close()
	sink, err := report.CreateSink(os.Stdout, cfg.ReportConf())
	if err != nil {
		return err
	}

	ctx, cancel := ctxWithSignalHandler(logger)
	defer cancel()
	res, err := engine.RunToSink(ctx, source, cfg.EngineOptions(logger), sink)
	if res != nil && ctx.Err() != nil && pkgerrors.Cause(err) == ctx.Err() {
		// cancelled, so report what was aggregated before stopping
		logger.Warn("Writing partial report", zap.String("run", res.ID))
		if werr := sink.Write(res.Accumulated); werr != nil {
			logger.Error("Unable to write partial report", zap.Error(werr))
		}
	}
	return err
}

func applyArgsToCfg(c *cli.Context, cfg *config.Config) error {
	if c.IsSet(argWorkers) {
		cfg.Workers = c.Int(argWorkers)
	}
	if c.IsSet(argDispatch) {
		cfg.Dispatch = c.String(argDispatch)
	}
	if c.IsSet(argQueueDepth) {
		cfg.QueueDepth = c.Int(argQueueDepth)
	}
	if c.IsSet(argMaxInFlight) {
		size, err := config.ParseByteSize(c.String(argMaxInFlight))
		if err != nil {
			return err
		}
		cfg.MaxInFlight = size
	}
	if c.IsSet(argMode) {
		cfg.Mode = c.String(argMode)
	}
	if c.IsSet(argChunkSize) {
		size, err := config.ParseByteSize(c.String(argChunkSize))
		if err != nil {
			return err
		}
		cfg.ChunkSize = size
	}
	if c.IsSet(argReadAhead) {
		cfg.ReadAhead = c.Int(argReadAhead)
	}
	if c.IsSet(argFieldSeparator) {
		sep, err := config.ParseSeparator(c.String(argFieldSeparator))
		if err != nil {
			return err
		}
		cfg.FieldSeparator = sep
	}
	if c.IsSet(argRecordSeparator) {
		sep, err := config.ParseSeparator(c.String(argRecordSeparator))
		if err != nil {
			return err
		}
		cfg.RecordSeparator = sep
	}
	if c.IsSet(argFormat) {
		cfg.Format = c.String(argFormat)
	}
	if c.IsSet(argPrecision) {
		cfg.Precision = c.Int(argPrecision)
	}
	if c.IsSet(argUnsorted) {
		cfg.Sort = !c.Bool(argUnsorted)
	}
	if c.IsSet(argLogLevel) {
		cfg.LogLevel = c.String(argLogLevel)
	}
	return nil
}

func ctxWithSignalHandler(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case s := <-sigChan:
			logger.Warn("Handling signal, stopping after in-flight chunks", zap.Stringer("signal", s))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
