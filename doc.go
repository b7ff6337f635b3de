// Package tally contains the core components of Tally, a framework for aggregating very large
// delimited record streams (key<sep>value<newline>) into per-key minimum, maximum, sum and count.
// This root package defines the types which flow between the scanner, the parser, the worker pool
// and the reducer, and is an excellent overview of Tally's key concepts.
package tally
