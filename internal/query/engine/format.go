package engine

import (
	"math"
	"strconv"
	"strings"
)

// FormatScore renders v with two decimals, rounding half up on the shortest
// decimal form of v. 1.005 renders as "1.01" even though its binary value
// is slightly below.
func FormatScore(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	sign := ""
	if v < 0 {
		sign = "-"
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	if len(frac) <= 2 {
		return sign + intPart + "." + frac + strings.Repeat("0", 2-len(frac))
	}
	digits := []byte(intPart + frac[:2])
	if frac[2] >= '5' {
		digits = increment(digits)
	}
	n := len(digits)
	return sign + string(digits[:n-2]) + "." + string(digits[n-2:])
}

// increment adds one to a decimal digit string.
func increment(digits []byte) []byte {
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] != '9' {
			digits[i]++
			return digits
		}
		digits[i] = '0'
	}
	return append([]byte{'1'}, digits...)
}
