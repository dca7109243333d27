package profile

import (
	"fmt"
	"math"
	"strconv"
)

// percent does not guard the denominator. A zero denominator yields NaN or
// Inf, which is printed as-is.
func percent(num, den uint64) float64 {
	return 100.0 * float64(num) / float64(den)
}

// formatFloat prints a float the same way a default-configured output stream
// does: six significant digits, no trailing zeros.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	return strconv.FormatFloat(v, 'g', 6, 64)
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return formatFloat(v)
	default:
		return fmt.Sprint(v)
	}
}

func left(v any, width int) string {
	return fmt.Sprintf("%-*s", width, toString(v))
}

func right(v any, width int) string {
	return fmt.Sprintf("%*s", width, toString(v))
}
