package memory

import (
	"github.com/go-sif/tally"
)

// DefaultChunkSize is the nominal Chunk stride, in bytes
const DefaultChunkSize = 1 << 20

// Conf configures a memory DataSource
type Conf struct {
	ChunkSize       int  // The nominal number of bytes per Chunk. Defaults to DefaultChunkSize.
	RecordSeparator byte // The byte terminating each record. Defaults to '\n'.
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
	return conf
}

// DataSource is a buffer containing records which will be aggregated
type DataSource struct {
	data []byte
	conf *Conf
}

// CreateDataSource is a factory for DataSources
func CreateDataSource(data []byte, conf *Conf) *DataSource {
	return &DataSource{data: data, conf: ensureDefaultConfValues(conf)}
}

// Analyze returns a ChunkMap, describing how the buffer will be divided into Chunks
func (ms *DataSource) Analyze() (tally.ChunkMap, error) {
	return CreateChunkMap(ms.data, ms.conf), nil
}

// IsStreaming returns false, since the entire buffer is addressable
func (ms *DataSource) IsStreaming() bool {
	return false
}

// Close is a no-op for in-memory buffers
func (ms *DataSource) Close() error {
	return nil
}
