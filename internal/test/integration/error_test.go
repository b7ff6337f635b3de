package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/accumulators"
	"github.com/go-sif/tally/datasource/parser/dsv"
	"github.com/go-sif/tally/datasource/stream"
	"github.com/go-sif/tally/engine"
	"github.com/go-sif/tally/errors"
	tallytest "github.com/go-sif/tally/testing"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// panickingParser panics on one particular Chunk
type panickingParser struct {
	parser  tally.RecordParser
	onChunk int
}

func (p *panickingParser) Parse(chunk *tally.Chunk, acc tally.Accumulator) (*tally.ParseSummary, error) {
	if chunk.Index == p.onChunk {
		panic(fmt.Sprintf("cannot parse chunk %d", chunk.Index))
	}
	return p.parser.Parse(chunk, acc)
}

func TestWorkerPanicIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	data := generateMeasurements(1, 2000, 10)
	for _, dispatch := range []tally.Dispatch{tally.DispatchPull, tally.DispatchPush} {
		res, err := tallytest.LocalRunBytes(context.Background(), data, 256, &engine.Options{
			NumWorkers: 3,
			Dispatch:   dispatch,
			Parser:     &panickingParser{parser: dsv.CreateParser(nil), onChunk: 5},
		})
		require.Nil(t, res)
		perr, ok := err.(errors.WorkerPanicError)
		require.True(t, ok, "expected a WorkerPanicError, got %v", err)
		require.Equal(t, 5, perr.Chunk)
		require.Equal(t, "cannot parse chunk 5", perr.Value)
	}
}

func TestReadFailureIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	boom := fmt.Errorf("connection reset")
	reader := tallytest.NewScriptedReader("A;1.0\n", "B;2.0\n", "C;3.0\n").FailWith(boom)
	source := stream.CreateDataSource(reader, &stream.Conf{ChunkSize: 6})
	defer source.Close()
	res, err := engine.Run(context.Background(), source, &engine.Options{NumWorkers: 2})
	require.Nil(t, res)
	require.NotNil(t, err)
	require.Equal(t, boom, pkgerrors.Cause(err))
}

// stubAccumulator cannot be merged into a Table
type stubAccumulator struct{}

func (stubAccumulator) Accumulate(key []byte, value float64)                   {}
func (stubAccumulator) Merge(o tally.Accumulator) error                        { return nil }
func (stubAccumulator) Get(key []byte) (tally.Statistics, bool)                { return tally.Statistics{}, false }
func (stubAccumulator) Len() int                                               { return 0 }
func (stubAccumulator) ForEach(fn func(string, *tally.Statistics) error) error { return nil }

func TestIncompatibleAccumulatorIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	var calls int32
	factory := func() tally.Accumulator {
		// the first Accumulator is the global mapping
		if atomic.AddInt32(&calls, 1) == 1 {
			return accumulators.NewTable(0)
		}
		return stubAccumulator{}
	}
	data := generateMeasurements(2, 2000, 10)
	res, err := tallytest.LocalRunBytes(context.Background(), data, 128, &engine.Options{
		NumWorkers:     4,
		NewAccumulator: factory,
	})
	require.Nil(t, res)
	require.IsType(t, errors.IncompatibleAccumulatorError{}, err)
}

func TestCancelledBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := tallytest.LocalRunBytes(ctx, generateMeasurements(3, 100, 5), 64, nil)
	require.Equal(t, context.Canceled, err)
	require.NotNil(t, res)
	require.Zero(t, res.Accumulated.Len())
}

// cancellingReader cancels a run after a number of reads
type cancellingReader struct {
	r      io.Reader
	reads  int
	after  int
	cancel context.CancelFunc
}

func (c *cancellingReader) Read(p []byte) (int, error) {
	c.reads++
	if c.reads == c.after {
		c.cancel()
	}
	return c.r.Read(p)
}

func TestCancelledRunReturnsPartialResult(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	data := generateMeasurements(4, 10000, 20)
	reader := &cancellingReader{r: bytes.NewReader(data), after: 5, cancel: cancel}
	source := stream.CreateDataSource(reader, &stream.Conf{ChunkSize: 256})
	defer source.Close()

	res, err := engine.Run(ctx, source, &engine.Options{NumWorkers: 2})
	require.Equal(t, context.Canceled, err)
	require.NotNil(t, res)
	// every dispatched chunk was drained into the partial result
	partial := totalCount(t, res.Accumulated)
	require.Less(t, partial, uint64(10000))
	require.EqualValues(t, res.Statistics.GetNumRecordsProcessed(), partial)
	require.Equal(t, res.Statistics.GetNumChunksEmitted(), res.Statistics.GetNumChunksProcessed())
}

func TestInvalidOptions(t *testing.T) {
	_, err := tallytest.LocalRunBytes(context.Background(), []byte("A;1.0\n"), 0, &engine.Options{Dispatch: "broadcast"})
	require.NotNil(t, err)
	_, err = tallytest.LocalRunBytes(context.Background(), []byte("A;1.0\n"), 0, &engine.Options{NumWorkers: -1})
	require.NotNil(t, err)
}
