package testing

import (
	"context"
	"io"

	"github.com/go-sif/tally/datasource/memory"
	"github.com/go-sif/tally/datasource/stream"
	"github.com/go-sif/tally/engine"
)

// LocalRunBytes runs a random-access aggregation over data, divided into Chunks of roughly chunkSize bytes
func LocalRunBytes(ctx context.Context, data []byte, chunkSize int, opts *engine.Options) (*engine.Result, error) {
	source := memory.CreateDataSource(data, &memory.Conf{ChunkSize: chunkSize})
	defer source.Close()
	return engine.Run(ctx, source, opts)
}

// LocalRunReads runs a streaming aggregation over a reader which produces exactly the given reads, in order
func LocalRunReads(ctx context.Context, reads []string, opts *engine.Options) (*engine.Result, error) {
	size := 1
	for _, r := range reads {
		if len(r) > size {
			size = len(r)
		}
	}
	source := stream.CreateDataSource(NewScriptedReader(reads...), &stream.Conf{ChunkSize: size})
	defer source.Close()
	return engine.Run(ctx, source, opts)
}

// ScriptedReader is an io.Reader which returns one scripted read per call to Read (split further
// only if the caller's buffer is too small), followed by an optional error in place of io.EOF
type ScriptedReader struct {
	reads []string
	err   error
}

// NewScriptedReader returns a ScriptedReader producing reads, then io.EOF
func NewScriptedReader(reads ...string) *ScriptedReader {
	return &ScriptedReader{reads: append([]string(nil), reads...), err: io.EOF}
}

// FailWith makes the ScriptedReader return err once its reads are exhausted
func (r *ScriptedReader) FailWith(err error) *ScriptedReader {
	r.err = err
	return r
}

// Read implements io.Reader
func (r *ScriptedReader) Read(p []byte) (int, error) {
	if len(r.reads) == 0 {
		return 0, r.err
	}
	n := copy(p, r.reads[0])
	r.reads[0] = r.reads[0][n:]
	if len(r.reads[0]) == 0 {
		r.reads = r.reads[1:]
	}
	return n, nil
}
