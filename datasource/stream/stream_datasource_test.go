package stream

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// scriptedReader returns exactly one scripted segment per Read
type scriptedReader struct {
	reads []string
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.reads) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.reads[0])
	r.reads[0] = r.reads[0][n:]
	if len(r.reads[0]) == 0 {
		r.reads = r.reads[1:]
	}
	return n, nil
}

func collect(t *testing.T, cm tally.ChunkMap) []*tally.Chunk {
	var chunks []*tally.Chunk
	for cm.HasNext() {
		chunk, err := cm.Next()
		if _, ok := err.(errors.NoMoreChunksError); ok {
			break
		}
		require.Nil(t, err)
		chunks = append(chunks, chunk)
	}
	return chunks
}

func requireAligned(t *testing.T, input string, chunks []*tally.Chunk) {
	var rebuilt []byte
	var offset int64
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Index)
		require.Equal(t, offset, chunk.Offset)
		require.NotZero(t, chunk.Len())
		if i < len(chunks)-1 || strings.HasSuffix(input, "\n") {
			require.Equal(t, byte('\n'), chunk.Data[chunk.Len()-1], "chunk %d ends mid-record", i)
		}
		rebuilt = append(rebuilt, chunk.Data...)
		offset = chunk.End()
	}
	require.Equal(t, input, string(rebuilt))
}

func TestSplitValueIsReconciled(t *testing.T) {
	r := &scriptedReader{reads: []string{"A;12", "3.0\nB;4.0\n"}}
	chunks := collect(t, CreateChunkMap(r, &Conf{ChunkSize: 16}))
	require.Len(t, chunks, 2)
	require.Equal(t, "A;123.0\n", string(chunks[0].Data))
	require.Equal(t, "B;4.0\n", string(chunks[1].Data))
	require.EqualValues(t, 8, chunks[1].Offset)
}

func TestSingleReadIsEmittedAtEnd(t *testing.T) {
	r := &scriptedReader{reads: []string{"A;1.0\n"}}
	cm := CreateChunkMap(r, &Conf{ChunkSize: 16})
	chunk, err := cm.Next()
	require.Nil(t, err)
	require.Equal(t, "A;1.0\n", string(chunk.Data))
	require.False(t, cm.HasNext())
	_, err = cm.Next()
	require.IsType(t, errors.NoMoreChunksError{}, err)
}

func TestNoTrailingSeparator(t *testing.T) {
	input := "A;1.0\nB;2.0"
	chunks := collect(t, CreateChunkMap(strings.NewReader(input), &Conf{ChunkSize: 4}))
	requireAligned(t, input, chunks)
	require.True(t, strings.HasSuffix(string(chunks[len(chunks)-1].Data), "B;2.0"))
}

func TestRecordLongerThanReads(t *testing.T) {
	long := strings.Repeat("k", 50)
	input := "A;1.0\n" + long + ";2.5\nB;3.0\n"
	chunks := collect(t, CreateChunkMap(strings.NewReader(input), &Conf{ChunkSize: 8}))
	requireAligned(t, input, chunks)
	var found bool
	for _, chunk := range chunks {
		if bytes.Contains(chunk.Data, []byte(long+";2.5\n")) {
			found = true
		}
	}
	require.True(t, found)
}

func TestCoverageAcrossReadSizes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "station-%d;%d.%d\n", i%17, i-100, i%10)
	}
	input := sb.String()
	for _, size := range []int{1, 2, 3, 7, 16, 64, 1000, len(input), 2 * len(input)} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			chunks := collect(t, CreateChunkMap(strings.NewReader(input), &Conf{ChunkSize: size}))
			requireAligned(t, input, chunks)
		})
	}
}

func TestShortReads(t *testing.T) {
	input := "Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\n"
	for name, r := range map[string]io.Reader{
		"one-byte": iotest.OneByteReader(strings.NewReader(input)),
		"half":     iotest.HalfReader(strings.NewReader(input)),
		"data-err": iotest.DataErrReader(strings.NewReader(input)),
	} {
		t.Run(name, func(t *testing.T) {
			requireAligned(t, input, collect(t, CreateChunkMap(r, &Conf{ChunkSize: 10})))
		})
	}
}

func TestCustomSeparator(t *testing.T) {
	input := "A;1.0|B;2.0|C;3.0|"
	chunks := collect(t, CreateChunkMap(strings.NewReader(input), &Conf{ChunkSize: 4, RecordSeparator: '|'}))
	var rebuilt []byte
	for _, chunk := range chunks {
		require.Equal(t, byte('|'), chunk.Data[chunk.Len()-1])
		rebuilt = append(rebuilt, chunk.Data...)
	}
	require.Equal(t, input, string(rebuilt))
}

func TestEmptyStream(t *testing.T) {
	cm := CreateChunkMap(strings.NewReader(""), nil)
	require.True(t, cm.HasNext())
	_, err := cm.Next()
	require.IsType(t, errors.NoMoreChunksError{}, err)
	require.False(t, cm.HasNext())
}

func TestReadErrorIsFatal(t *testing.T) {
	boom := fmt.Errorf("disk on fire")
	r := io.MultiReader(strings.NewReader("A;1.0\nB;2.0\n"), iotest.ErrReader(boom))
	cm := CreateChunkMap(r, &Conf{ChunkSize: 4})
	var err error
	for cm.HasNext() && err == nil {
		_, err = cm.Next()
	}
	require.NotNil(t, err)
	require.Equal(t, boom, pkgerrors.Cause(err))
	// the failure is sticky
	_, err = cm.Next()
	require.Equal(t, boom, pkgerrors.Cause(err))
	require.False(t, cm.HasNext())
}

type stalledReader struct{}

func (stalledReader) Read(p []byte) (int, error) {
	return 0, nil
}

func TestStalledReaderFails(t *testing.T) {
	_, err := CreateChunkMap(stalledReader{}, nil).Next()
	require.Equal(t, io.ErrNoProgress, pkgerrors.Cause(err))
}

type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestDataSourceWithReadAhead(t *testing.T) {
	input := strings.Repeat("Jakarta;26.7\nKabul;12.1\n", 500)
	rc := &closeRecorder{Reader: strings.NewReader(input)}
	ds := CreateDataSource(rc, &Conf{ChunkSize: 256, ReadAhead: 4})
	require.True(t, ds.IsStreaming())
	cm, err := ds.Analyze()
	require.Nil(t, err)
	requireAligned(t, input, collect(t, cm))

	_, err = ds.Analyze()
	require.NotNil(t, err)

	require.Nil(t, ds.Close())
	require.Nil(t, ds.Close())
	require.NotZero(t, rc.closed)
}
