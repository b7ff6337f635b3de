// Package mmap provides a random-access DataSource which memory-maps a file and divides the
// mapped region into record-aligned Chunks using the memory DataSource's stride scan.
package mmap
