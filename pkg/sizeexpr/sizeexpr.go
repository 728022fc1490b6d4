// Package sizeexpr parses byte-budget expressions like "600kb", "6mb"
// or a literal byte count into a canonical target size.
package sizeexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unconstrained is the canonical "no size target" value.
const Unconstrained int64 = 0

var (
	// ErrMalformed is returned for expressions that are not a number
	// optionally followed by kb, mb or gb.
	ErrMalformed = errors.New("sizeexpr: malformed size expression")
	// ErrNotPositive is returned when an expression resolves to zero or
	// fewer bytes.
	ErrNotPositive = errors.New("sizeexpr: size must be positive")
)

// Binary multipliers. "600kb" means 600 × 1024 bytes.
var multipliers = map[string]float64{
	"":   1,
	"kb": 1024,
	"mb": 1024 * 1024,
	"gb": 1024 * 1024 * 1024,
}

// Parse converts an expression into a byte count. An empty expression
// means no constraint. Units are case-insensitive; fractional values
// are floored after the multiplier is applied.
func Parse(expr string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Unconstrained, nil
	}

	unit := ""
	for _, suffix := range []string{"kb", "mb", "gb"} {
		if strings.HasSuffix(s, suffix) {
			unit = suffix
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	s = strings.TrimSpace(s)

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, expr)
	}

	size := math.Floor(value * multipliers[unit])
	if size <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotPositive, expr)
	}
	// Conversion of an out-of-range float to int64 is not defined, so
	// the bound is checked on the float side.
	if size >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, expr)
	}
	return int64(size), nil
}
