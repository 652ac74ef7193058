package utils

import (
	"strconv"
	"strings"
)

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n uint64) string {
	str := strconv.FormatUint(n, 10)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	b.Grow(len(str) + len(str)/3)
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// IsExitCommand reports whether input equals the exit sentinel, ignoring case
// and surrounding whitespace.
func IsExitCommand(input, sentinel string) bool {
	return sentinel != "" && strings.EqualFold(strings.TrimSpace(input), sentinel)
}
