// Package file opens an input file as a DataSource. Uncompressed regular files are memory-mapped
// and divided by stride; everything else (stdin, pipes, .lz4 and .zst files) is streamed.
package file
