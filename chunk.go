package tally

// A Chunk is a contiguous, record-aligned portion of the input. It begins immediately after a
// record separator (or at the start of the input) and ends immediately after a record separator
// (or at the end of the input, for the final Chunk). A Chunk is processed by exactly one worker.
type Chunk struct {
	Index  int    // Index is the position of this Chunk in emission order
	Offset int64  // Offset is the position of the first byte of this Chunk in the input
	Data   []byte // Data holds the bytes of this Chunk. It is never written to after emission.
}

// Len returns the number of bytes in this Chunk
func (c *Chunk) Len() int {
	return len(c.Data)
}

// End returns the input offset immediately after the last byte of this Chunk
func (c *Chunk) End() int64 {
	return c.Offset + int64(len(c.Data))
}
