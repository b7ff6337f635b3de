package dsv

import (
	"bytes"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
	multierror "github.com/hashicorp/go-multierror"
)

// DefaultMaxDiagnostics is the default number of MalformedRecordErrors retained per Chunk
const DefaultMaxDiagnostics = 16

// ParserConf configures a DSV Parser
type ParserConf struct {
	FieldSeparator  byte // The byte separating a key from its value. Defaults to ;
	RecordSeparator byte // The byte terminating each record. Defaults to \n
	MaxDiagnostics  int  // The maximum number of malformed records described per Chunk. Further ones are only counted. Defaults to 16.
}

// Parser folds key/value records into an Accumulator
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new DSV Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.FieldSeparator == 0 {
		conf.FieldSeparator = ';'
	}
	if conf.RecordSeparator == 0 {
		conf.RecordSeparator = '\n'
	}
	if conf.MaxDiagnostics <= 0 {
		conf.MaxDiagnostics = DefaultMaxDiagnostics
	}
	return &Parser{conf: conf}
}

// Parse scans a Chunk once, folding each well-formed record into acc. Malformed records are
// skipped, and described by the returned error (a *multierror.Error of MalformedRecordErrors).
// The returned ParseSummary is valid even when an error is returned.
func (p *Parser) Parse(chunk *tally.Chunk, acc tally.Accumulator) (*tally.ParseSummary, error) {
	summary := &tally.ParseSummary{}
	var diagnostics *multierror.Error
	numDiagnostics := 0
	data := chunk.Data
	for start := 0; start < len(data); {
		// find the end of the current record
		end := len(data)
		next := len(data)
		if idx := bytes.IndexByte(data[start:], p.conf.RecordSeparator); idx >= 0 {
			end = start + idx
			next = end + 1
		}
		line := data[start:end]
		offset := chunk.Offset + int64(start)
		start = next

		if p.conf.RecordSeparator == '\n' && len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if isPadding(line) {
			continue
		}
		key, value, reason := p.splitRecord(line)
		if reason != "" {
			summary.Malformed++
			if numDiagnostics < p.conf.MaxDiagnostics {
				diagnostics = multierror.Append(diagnostics, errors.MalformedRecordError{
					Offset: offset,
					Line:   append([]byte(nil), line...),
					Reason: reason,
				})
				numDiagnostics++
			}
			continue
		}
		acc.Accumulate(key, value)
		summary.Records++
	}
	return summary, diagnostics.ErrorOrNil()
}

// splitRecord separates a line into its key and value, or returns the reason it cannot
func (p *Parser) splitRecord(line []byte) ([]byte, float64, string) {
	sep := bytes.IndexByte(line, p.conf.FieldSeparator)
	if sep < 0 {
		return nil, 0, "missing field separator"
	} else if sep == 0 {
		return nil, 0, "empty key"
	}
	value, err := ParseValue(line[sep+1:])
	if err != nil {
		return nil, 0, err.Error()
	}
	return line[:sep], value, ""
}
