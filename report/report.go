// Package report writes a global mapping as a human-readable report, one line per key.
package report

import (
	"bufio"
	"io"
	"sort"
	"strconv"

	"github.com/go-sif/tally"
	pkgerrors "github.com/pkg/errors"
)

// Format names a report layout
type Format = string

const (
	// FormatBRC writes key=min/mean/max
	FormatBRC Format = "brc"
	// FormatLines writes key;min;max;mean
	FormatLines Format = "lines"
	// FormatVerbose writes Name: key, Min: min, Max: max, Avg: mean
	FormatVerbose Format = "verbose"
)

// DefaultPrecision is the default number of decimal places in a report
const DefaultPrecision = 1

// Conf configures a report Sink
type Conf struct {
	Format    Format // Defaults to FormatBRC
	Precision int    // The number of decimal places for min, mean and max. Verbose reports print min and max exactly.
	Unsorted  bool   // iff true, keys are written in the Accumulator's iteration order instead of sorted
}

// Sink writes reports to an io.Writer
type Sink struct {
	w    io.Writer
	conf *Conf
}

// CreateSink returns a Sink writing to w. A nil conf selects FormatBRC with DefaultPrecision, sorted by key.
func CreateSink(w io.Writer, conf *Conf) (*Sink, error) {
	if conf == nil {
		conf = &Conf{Precision: DefaultPrecision}
	}
	switch conf.Format {
	case "":
		conf.Format = FormatBRC
	case FormatBRC, FormatLines, FormatVerbose:
	default:
		return nil, pkgerrors.Errorf("Unknown report format \"%s\"", conf.Format)
	}
	if conf.Precision < 0 {
		return nil, pkgerrors.Errorf("Report precision must not be negative, was %d", conf.Precision)
	}
	return &Sink{w: w, conf: conf}, nil
}

type line struct {
	key   string
	stats tally.Statistics
}

// Write writes one line per key of result
func (s *Sink) Write(result tally.Accumulator) error {
	lines := make([]line, 0, result.Len())
	err := result.ForEach(func(key string, stats *tally.Statistics) error {
		lines = append(lines, line{key: key, stats: *stats})
		return nil
	})
	if err != nil {
		return err
	}
	if !s.conf.Unsorted {
		sort.Slice(lines, func(i, j int) bool { return lines[i].key < lines[j].key })
	}
	bw := bufio.NewWriter(s.w)
	buf := make([]byte, 0, 128)
	for _, l := range lines {
		buf = s.appendLine(buf[:0], l)
		if _, err := bw.Write(buf); err != nil {
			return pkgerrors.Wrap(err, "unable to write report")
		}
	}
	return pkgerrors.Wrap(bw.Flush(), "unable to write report")
}

func (s *Sink) appendLine(buf []byte, l line) []byte {
	prec := s.conf.Precision
	switch s.conf.Format {
	case FormatLines:
		buf = append(buf, l.key...)
		buf = append(buf, ';')
		buf = strconv.AppendFloat(buf, l.stats.Min, 'f', prec, 64)
		buf = append(buf, ';')
		buf = strconv.AppendFloat(buf, l.stats.Max, 'f', prec, 64)
		buf = append(buf, ';')
		buf = strconv.AppendFloat(buf, l.stats.Mean(), 'f', prec, 64)
	case FormatVerbose:
		buf = append(buf, "Name: "...)
		buf = append(buf, l.key...)
		buf = append(buf, ", Min: "...)
		buf = strconv.AppendFloat(buf, l.stats.Min, 'f', -1, 64)
		buf = append(buf, ", Max: "...)
		buf = strconv.AppendFloat(buf, l.stats.Max, 'f', -1, 64)
		buf = append(buf, ", Avg: "...)
		buf = strconv.AppendFloat(buf, l.stats.Mean(), 'f', prec, 64)
	default:
		buf = append(buf, l.key...)
		buf = append(buf, '=')
		buf = strconv.AppendFloat(buf, l.stats.Min, 'f', prec, 64)
		buf = append(buf, '/')
		buf = strconv.AppendFloat(buf, l.stats.Mean(), 'f', prec, 64)
		buf = append(buf, '/')
		buf = strconv.AppendFloat(buf, l.stats.Max, 'f', prec, 64)
	}
	return append(buf, '\n')
}
