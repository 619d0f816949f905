package math

import (
	"strconv"
)

// Format formats a float based on the given precision
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Formats formats all the given floats.
func Formats(ff []float64) []string {
	ss := make([]string, len(ff))
	for i, f := range ff {
		ss[i] = Format(f)
	}
	return ss
}
