//go:build !unix

package mmap

import (
	"github.com/go-sif/tally"
	"github.com/go-sif/tally/datasource/memory"
	"github.com/pkg/errors"
)

// DataSource is unavailable on this platform
type DataSource struct{}

// Open always fails on platforms without mmap support
func Open(path string, conf *memory.Conf) (*DataSource, error) {
	return nil, errors.Errorf("unable to mmap %s: memory-mapping is not supported on this platform", path)
}

// Analyze is never reachable, since Open always fails
func (ds *DataSource) Analyze() (tally.ChunkMap, error) {
	return nil, errors.New("memory-mapping is not supported on this platform")
}

// IsStreaming returns false
func (ds *DataSource) IsStreaming() bool {
	return false
}

// Size returns 0
func (ds *DataSource) Size() int {
	return 0
}

// Close is a no-op
func (ds *DataSource) Close() error {
	return nil
}
