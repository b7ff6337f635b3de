// Package stream provides a DataSource which reads records sequentially from an io.Reader using
// fixed-size reads. A record which straddles two reads is completed by moving the head of the
// later read onto the tail of the earlier one before the earlier one is emitted as a Chunk, so
// every Chunk is record-aligned without the whole input ever being held in memory.
package stream
