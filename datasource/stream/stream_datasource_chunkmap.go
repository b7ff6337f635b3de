package stream

import (
	"bytes"
	"io"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
	pkgerrors "github.com/pkg/errors"
)

// maxConsecutiveEmptyReads matches the limit bufio applies to readers which return no data and no error
const maxConsecutiveEmptyReads = 100

// ChunkMap is an iterator producing record-aligned Chunks from sequential reads. Each read fills a
// freshly allocated slot, so an emitted Chunk is never touched by the scanner again.
type ChunkMap struct {
	r      io.Reader
	size   int
	sep    byte
	primed bool
	done   bool
	err    error
	// pending holds the bytes read before current which have not yet been emitted
	pending       []byte
	pendingOffset int64
	readOffset    int64
	index         int
}

// CreateChunkMap returns a ChunkMap reading from r
func CreateChunkMap(r io.Reader, conf *Conf) *ChunkMap {
	conf = ensureDefaultConfValues(conf)
	return &ChunkMap{
		r:    r,
		size: conf.ChunkSize,
		sep:  conf.RecordSeparator,
	}
}

// HasNext returns true unless the stream is known to be exhausted. Next may still
// return a NoMoreChunksError if the stream ends without any further data.
func (cm *ChunkMap) HasNext() bool {
	return !cm.done
}

// Next returns the next Chunk, reading from the stream until the pending bytes can be completed
// to a record boundary (or the stream ends)
func (cm *ChunkMap) Next() (*tally.Chunk, error) {
	if cm.err != nil {
		return nil, cm.err
	}
	if cm.done {
		return nil, errors.NoMoreChunksError{}
	}
	if !cm.primed {
		first, err := cm.read()
		if err == io.EOF {
			cm.done = true
			return nil, errors.NoMoreChunksError{}
		} else if err != nil {
			return nil, cm.fail(err)
		}
		cm.pending = first
		cm.primed = true
	}
	for {
		current, err := cm.read()
		if err == io.EOF {
			cm.done = true
			if len(cm.pending) == 0 {
				return nil, errors.NoMoreChunksError{}
			}
			return cm.emit(nil), nil
		} else if err != nil {
			return nil, cm.fail(err)
		}
		if n := len(cm.pending); n > 0 && cm.pending[n-1] != cm.sep {
			idx := bytes.IndexByte(current, cm.sep)
			if idx < 0 {
				// the record continues past this read as well
				cm.pending = append(cm.pending, current...)
				continue
			}
			cm.pending = append(cm.pending, current[:idx+1]...)
			current = current[idx+1:]
		}
		if len(cm.pending) == 0 {
			cm.pending = current
			continue
		}
		return cm.emit(current), nil
	}
}

// emit hands pending off as a Chunk and replaces it with next
func (cm *ChunkMap) emit(next []byte) *tally.Chunk {
	n := len(cm.pending)
	chunk := &tally.Chunk{
		Index:  cm.index,
		Offset: cm.pendingOffset,
		Data:   cm.pending[:n:n],
	}
	cm.index++
	cm.pendingOffset += int64(n)
	cm.pending = next
	return chunk
}

// read performs one read into a new slot. The returned slice is exactly as long as the number
// of bytes read. io.EOF is only returned when no bytes were read.
func (cm *ChunkMap) read() ([]byte, error) {
	buf := make([]byte, cm.size)
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := cm.r.Read(buf)
		if n > 0 {
			cm.readOffset += int64(n)
			if err != nil && err != io.EOF {
				// a partial read followed by an error is still fatal
				return nil, pkgerrors.Wrapf(err, "unable to read stream at offset %d", cm.readOffset)
			}
			return buf[:n], nil
		}
		if err == io.EOF {
			return nil, io.EOF
		} else if err != nil {
			return nil, pkgerrors.Wrapf(err, "unable to read stream at offset %d", cm.readOffset)
		}
	}
	return nil, pkgerrors.Wrapf(io.ErrNoProgress, "unable to read stream at offset %d", cm.readOffset)
}

func (cm *ChunkMap) fail(err error) error {
	cm.err = err
	cm.done = true
	cm.pending = nil
	return err
}
