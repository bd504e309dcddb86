package whale

import "strconv"

// FormatCompact renders v with two decimals and a K/M/B suffix.
func FormatCompact(v float64) string {
	switch {
	case v >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "B"
	case v >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	case v >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 2, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}
