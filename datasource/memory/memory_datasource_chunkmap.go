package memory

import (
	"bytes"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
)

// ChunkMap is an iterator producing record-aligned Chunks from an addressable buffer
type ChunkMap struct {
	data   []byte
	stride int
	sep    byte
	offset int
	index  int
}

// CreateChunkMap returns a ChunkMap over data. The buffer must not be modified while
// Chunks produced from it are in use.
func CreateChunkMap(data []byte, conf *Conf) *ChunkMap {
	conf = ensureDefaultConfValues(conf)
	return &ChunkMap{
		data:   data,
		stride: conf.ChunkSize,
		sep:    conf.RecordSeparator,
	}
}

// HasNext returns true iff there is another Chunk remaining
func (cm *ChunkMap) HasNext() bool {
	return cm.offset < len(cm.data)
}

// Next returns the next Chunk. Each Chunk extends from the end of the previous one to just
// past the first record separator at or after the nominal stride (or to the end of the buffer).
func (cm *ChunkMap) Next() (*tally.Chunk, error) {
	if cm.offset >= len(cm.data) {
		return nil, errors.NoMoreChunksError{}
	}
	end := cm.offset + cm.stride
	if end >= len(cm.data) {
		end = len(cm.data)
	} else if idx := bytes.IndexByte(cm.data[end:], cm.sep); idx < 0 {
		end = len(cm.data)
	} else {
		end += idx + 1
	}
	chunk := &tally.Chunk{
		Index:  cm.index,
		Offset: int64(cm.offset),
		Data:   cm.data[cm.offset:end:end],
	}
	cm.offset = end
	cm.index++
	return chunk, nil
}
