package util

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/errors"
)

// SafeParse wraps a RecordParser such that panics are recovered into WorkerPanicErrors
func SafeParse(worker int, parser tally.RecordParser) func(chunk *tally.Chunk, acc tally.Accumulator) (*tally.ParseSummary, error) {
	return func(chunk *tally.Chunk, acc tally.Accumulator) (summary *tally.ParseSummary, err error) {
		defer func() {
			if r := recover(); r != nil {
				summary = nil
				err = errors.WorkerPanicError{
					Worker: worker,
					Chunk:  chunk.Index,
					Value:  r,
					Trace:  GetTrace(),
				}
			}
		}()
		summary, err = parser.Parse(chunk, acc)
		return
	}
}

// GetTrace produces the string representation of a stack trace
func GetTrace() string {
	var name, file string
	var line int
	var pc [16]uintptr
	var res strings.Builder
	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			fmt.Fprintf(&res, "%s\n\t%s:%d\n", name, file, line)
		}
	}
	return res.String()
}

// FormatMultiError formats multierrors for logging
func FormatMultiError(merrs []error) string {
	var msg strings.Builder
	for i := 0; i < len(merrs); i++ {
		fmt.Fprintf(&msg, "%+v\n", merrs[i])
	}
	return msg.String()
}
