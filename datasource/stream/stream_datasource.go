package stream

import (
	"io"
	"sync"

	"github.com/go-sif/tally"
	"github.com/klauspost/readahead"
	pkgerrors "github.com/pkg/errors"
)

// DefaultChunkSize is the capacity of a single read, in bytes
const DefaultChunkSize = 1 << 20

// Conf configures a streaming DataSource
type Conf struct {
	ChunkSize       int  // The capacity of each read. Defaults to DefaultChunkSize.
	RecordSeparator byte // The byte terminating each record. Defaults to '\n'.
	ReadAhead       int  // The number of buffers read asynchronously ahead of the scanner. 0 disables read-ahead.
}

func ensureDefaultConfValues(conf *Conf) *Conf {
	if conf == nil {
		conf = &Conf{}
	}
	if conf.ChunkSize <= 0 {
		conf.ChunkSize = DefaultChunkSize
	}
	if conf.RecordSeparator == 0 {
		conf.RecordSeparator = '\n'
	}
	if conf.ReadAhead < 0 {
		conf.ReadAhead = 0
	}
	return conf
}

// DataSource is a sequential stream of records which will be aggregated. It can only be analyzed once.
type DataSource struct {
	r        io.Reader
	conf     *Conf
	ahead    io.ReadCloser
	analyzed bool
	close    sync.Once
}

// CreateDataSource is a factory for DataSources. If r is also an io.Closer, it is closed by Close.
func CreateDataSource(r io.Reader, conf *Conf) *DataSource {
	return &DataSource{r: r, conf: ensureDefaultConfValues(conf)}
}

// Analyze returns a ChunkMap, describing how the stream will be divided into Chunks
func (ss *DataSource) Analyze() (tally.ChunkMap, error) {
	if ss.analyzed {
		return nil, pkgerrors.New("Stream has already been analyzed and cannot be read twice")
	}
	ss.analyzed = true
	r := ss.r
	if ss.conf.ReadAhead > 0 {
		ahead, err := readahead.NewReaderSize(r, ss.conf.ReadAhead, ss.conf.ChunkSize)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "unable to start read-ahead")
		}
		ss.ahead = ahead
		r = ahead
	}
	return CreateChunkMap(r, ss.conf), nil
}

// IsStreaming returns true, since records are read sequentially
func (ss *DataSource) IsStreaming() bool {
	return true
}

// Close stops read-ahead and closes the underlying reader, if it is closeable
func (ss *DataSource) Close() error {
	var err error
	ss.close.Do(func() {
		if ss.ahead != nil {
			err = ss.ahead.Close()
		}
		if c, ok := ss.r.(io.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
