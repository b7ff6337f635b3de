//go:build unix

package mmap

import (
	"os"
	"sync"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/datasource/memory"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DataSource is a memory-mapped file containing records which will be aggregated
type DataSource struct {
	path  string
	data  []byte
	conf  *memory.Conf
	close sync.Once
}

// Open maps the file at path into memory. The mapping is released by Close.
func Open(path string, conf *memory.Conf) (*DataSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to stat %s", path)
	}
	if !fi.Mode().IsRegular() {
		return nil, errors.Errorf("%s is not a regular file and cannot be memory-mapped", path)
	}
	size := fi.Size()
	if size != int64(int(size)) {
		return nil, errors.Errorf("%s is too large to be memory-mapped", path)
	}
	ds := &DataSource{path: path, conf: conf}
	if size == 0 {
		return ds, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to mmap %s", path)
	}
	// chunks are scanned front to back
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	ds.data = data
	return ds, nil
}

// Analyze returns a ChunkMap, describing how the mapped file will be divided into Chunks
func (ds *DataSource) Analyze() (tally.ChunkMap, error) {
	return memory.CreateChunkMap(ds.data, ds.conf), nil
}

// IsStreaming returns false, since the entire file is addressable
func (ds *DataSource) IsStreaming() bool {
	return false
}

// Size returns the number of mapped bytes
func (ds *DataSource) Size() int {
	return len(ds.data)
}

// Close unmaps the file. Chunks produced by this DataSource must not be accessed afterwards.
func (ds *DataSource) Close() error {
	var err error
	ds.close.Do(func() {
		if ds.data != nil {
			err = errors.Wrapf(unix.Munmap(ds.data), "unable to unmap %s", ds.path)
			ds.data = nil
		}
	})
	return err
}
