package tally

// ChunkMap is an iterator producing the record-aligned Chunks of a DataSource.
// HasNext is a hint: a streaming ChunkMap may only discover that it is exhausted
// while attempting to produce the next Chunk, in which case Next returns a
// NoMoreChunksError.
type ChunkMap interface {
	HasNext() bool
	Next() (*Chunk, error)
}

// DataSource is a source of records which will be aggregated. It describes how the
// input is divided into Chunks.
type DataSource interface {
	Analyze() (ChunkMap, error) // Analyze returns a ChunkMap, describing how the source will be divided into Chunks
	IsStreaming() bool          // IsStreaming returns true iff this DataSource is read sequentially with fixed-size reads
	Close() error               // Close releases the input. Chunks must not be accessed afterwards.
}

// RecordParser folds every well-formed record of a Chunk into an Accumulator
type RecordParser interface {
	Parse(chunk *Chunk, acc Accumulator) (*ParseSummary, error)
}

// ParseSummary describes the outcome of parsing a single Chunk. Diagnostics for malformed
// records are returned by RecordParser.Parse as an error.
type ParseSummary struct {
	Records   int64 // Records is the number of well-formed records folded into the Accumulator
	Malformed int64 // Malformed is the number of records which were skipped
}
