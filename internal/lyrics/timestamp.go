package lyrics

import (
	"math"
	"strconv"
	"strings"
)

// ParseTimestamp converts one LRC time tag to milliseconds.
//
// Accepts the tag with or without its surrounding [] or <> delimiters,
// tolerates comma decimals ("[00:01,50]") and the malformed three-part
// "[mm:ss:xx]" variant, where the final colon is treated as the decimal
// point. Any parse failure yields 0.
func ParseTimestamp(tag string) int64 {
	s := strings.TrimSpace(tag)
	s = strings.Trim(s, "[]<>")
	s = strings.ReplaceAll(s, ",", ".")

	// [mm:ss:xx], rewrite the last colon to a decimal point
	if strings.Count(s, ":") > 1 {
		i := strings.LastIndex(s, ":")
		s = s[:i] + "." + s[i+1:]
	}

	minutePart, secondPart, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(secondPart), 64)
	if err != nil {
		return 0
	}

	// Round the fractional seconds so a binary float like 2.03 does not
	// floor to 2029ms.
	return int64(minutes)*60000 + int64(math.Round(seconds*1000))
}
