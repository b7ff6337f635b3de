// Package dsv parses Chunks of delimiter-separated key/value records, folding every
// well-formed record into an Accumulator and reporting the rest as diagnostics.
package dsv
