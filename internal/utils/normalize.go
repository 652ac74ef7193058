package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeWord trims surrounding whitespace, composes the word to NFC and
// lowercases it. Dictionary keys and queries both go through here so that
// "Café", "café" and "café" all meet on the same bytes.
func NormalizeWord(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	// Lowercasing can produce sequences that are no longer composed.
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	return s
}

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
// Useful for ranking items that are already sorted.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
