package dsv

import (
	"math"
	"strconv"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrEmptyValue occurs when a record has nothing after its field separator
	ErrEmptyValue = pkgerrors.New("empty value")
	// ErrInvalidValue occurs when a value is not a decimal number
	ErrInvalidValue = pkgerrors.New("invalid value")
	// ErrNonFiniteValue occurs when a value is NaN, infinite or out of range
	ErrNonFiniteValue = pkgerrors.New("non-finite value")
)

// exact powers of ten, which make digits/pow10[n] correctly rounded
var pow10 = [...]float64{1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10, 1e11, 1e12, 1e13, 1e14, 1e15}

// ParseValue converts decimal text (optional sign, optional fraction, exponent tolerated) to a
// finite float64. It never panics.
func ParseValue(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, ErrEmptyValue
	}
	if v, ok := parseSimpleDecimal(b); ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, ErrNonFiniteValue
		}
		return 0, ErrInvalidValue
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteValue
	}
	return v, nil
}

// parseSimpleDecimal handles [+-]digits[.digits] with at most 15 significant digits, the
// overwhelmingly common case, without allocating
func parseSimpleDecimal(b []byte) (float64, bool) {
	neg := false
	switch b[0] {
	case '-':
		neg = true
		b = b[1:]
	case '+':
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, false
	}
	var mantissa uint64
	digits := 0
	fraction := -1
	for i, c := range b {
		switch {
		case c >= '0' && c <= '9':
			mantissa = mantissa*10 + uint64(c-'0')
			digits++
		case c == '.' && fraction < 0 && i > 0 && i < len(b)-1:
			fraction = 0
			continue
		default:
			return 0, false
		}
		if fraction >= 0 {
			fraction++
		}
	}
	if digits > 15 {
		return 0, false
	}
	if fraction < 0 {
		fraction = 0
	}
	v := float64(mantissa) / pow10[fraction]
	if neg {
		v = -v
	}
	return v, true
}

// isPadding returns true iff line holds nothing but NUL bytes (or nothing at all)
func isPadding(line []byte) bool {
	for _, c := range line {
		if c != 0 {
			return false
		}
	}
	return true
}
