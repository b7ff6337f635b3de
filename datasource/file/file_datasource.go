package file

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/datasource/memory"
	"github.com/go-sif/tally/datasource/mmap"
	"github.com/go-sif/tally/datasource/stream"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	pkgerrors "github.com/pkg/errors"
)

// Mode selects how a file is read
type Mode = string

const (
	// ModeAuto memory-maps regular uncompressed files and streams everything else
	ModeAuto Mode = "auto"
	// ModeMmap always memory-maps, failing for inputs which cannot be mapped
	ModeMmap Mode = "mmap"
	// ModeStream always reads sequentially
	ModeStream Mode = "stream"
)

// Stdin is the path which selects standard input
const Stdin = "-"

// Conf configures how a file is opened
type Conf struct {
	Mode            Mode // Defaults to ModeAuto
	ChunkSize       int  // The nominal Chunk stride (mapped) or read capacity (streamed). Defaults to 1MiB.
	RecordSeparator byte // The byte terminating each record. Defaults to '\n'.
	ReadAhead       int  // The number of read-ahead buffers when streaming. 0 disables read-ahead.
}

type codec int

const (
	codecNone codec = iota
	codecLZ4
	codecZstd
)

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lz4":
		return codecLZ4
	case ".zst", ".zstd":
		return codecZstd
	default:
		return codecNone
	}
}

// Open returns a DataSource reading the file at path, or standard input if path is "-".
// The caller must Close the DataSource once the run has finished.
func Open(path string, conf *Conf) (tally.DataSource, error) {
	if conf == nil {
		conf = &Conf{}
	}
	mode := conf.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if mode != ModeAuto && mode != ModeMmap && mode != ModeStream {
		return nil, pkgerrors.Errorf("Unknown file mode \"%s\"", mode)
	}
	streamConf := &stream.Conf{
		ChunkSize:       conf.ChunkSize,
		RecordSeparator: conf.RecordSeparator,
		ReadAhead:       conf.ReadAhead,
	}
	if path == Stdin {
		if mode == ModeMmap {
			return nil, pkgerrors.New("Standard input cannot be memory-mapped")
		}
		return stream.CreateDataSource(io.NopCloser(os.Stdin), streamConf), nil
	}
	c := codecFor(path)
	if c != codecNone && mode == ModeMmap {
		return nil, pkgerrors.Errorf("Compressed file %s cannot be memory-mapped", path)
	}
	if c == codecNone && mode != ModeStream {
		ds, err := mmap.Open(path, &memory.Conf{ChunkSize: conf.ChunkSize, RecordSeparator: conf.RecordSeparator})
		if err == nil {
			return ds, nil
		} else if mode == ModeMmap || os.IsNotExist(pkgerrors.Cause(err)) {
			return nil, err
		}
		// not mappable (a pipe, a device or an unsupported platform), so fall back to streaming
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "unable to open %s", path)
	}
	r, err := decompress(f, c)
	if err != nil {
		f.Close()
		return nil, pkgerrors.Wrapf(err, "unable to decompress %s", path)
	}
	return stream.CreateDataSource(r, streamConf), nil
}

// decompressedFile closes both the decoder and the file beneath it
type decompressedFile struct {
	io.Reader
	closeDecoder func()
	f            *os.File
}

func (d *decompressedFile) Close() error {
	if d.closeDecoder != nil {
		d.closeDecoder()
	}
	return d.f.Close()
}

func decompress(f *os.File, c codec) (io.ReadCloser, error) {
	switch c {
	case codecLZ4:
		return &decompressedFile{Reader: lz4.NewReader(f), f: f}, nil
	case codecZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		return &decompressedFile{Reader: dec, closeDecoder: dec.Close, f: f}, nil
	default:
		return f, nil
	}
}
