// Package memory provides a random-access DataSource over a byte slice which is already
// fully addressable, such as a memory-mapped file. Chunks are produced by striding over the
// slice and extending each stride forward to the next record separator, so no state is
// shared between Chunks.
package memory
