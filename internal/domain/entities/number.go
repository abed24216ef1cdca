package entities

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber converts a cell to float64. It accepts a leading currency
// sign, thousands separators and accounting negatives like "(12.50)".
// Empty, non-numeric or non-finite cells yield NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return math.NaN()
	}
	if negative {
		v = -v
	}
	return v
}

// IsNumber reports whether ParseNumber would yield a value.
func IsNumber(s string) bool {
	return !math.IsNaN(ParseNumber(s))
}
