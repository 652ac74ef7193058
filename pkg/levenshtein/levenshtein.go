// Package levenshtein provides a bounded edit-distance automaton over
// Unicode code points.
//
// A state is a clipped Wagner-Fischer row: entry i holds the minimum number
// of edits needed to turn the input consumed so far into the first i runes
// of the pattern, saturated at maxDistance+1. Callers own the row buffers so
// that walking a trie or automaton needs one buffer per depth and no
// allocation per step.
package levenshtein

import (
	"github.com/cockroachdb/errors"
)

// MaxDistance is the largest supported edit distance.
const MaxDistance = 1

// ErrInvalidDistance is returned for distances outside [0, MaxDistance].
var ErrInvalidDistance = errors.New("edit distance must be 0 or 1")

// ValidateDistance reports whether d is a supported edit distance.
func ValidateDistance(d int) error {
	if d < 0 || d > MaxDistance {
		return errors.Wrapf(ErrInvalidDistance, "got %d", d)
	}
	return nil
}

// Automaton accepts strings within a fixed edit distance of a pattern.
// It holds no per-walk state and is safe for concurrent use.
type Automaton struct {
	pattern []rune
	max     uint8
}

// New builds an automaton for pattern with the given maximum distance.
func New(pattern string, maxDistance int) (*Automaton, error) {
	if err := ValidateDistance(maxDistance); err != nil {
		return nil, err
	}
	return &Automaton{
		pattern: []rune(pattern),
		max:     uint8(maxDistance),
	}, nil
}

// RowSize is the length of the buffers passed to Start and Step.
func (a *Automaton) RowSize() int {
	return len(a.pattern) + 1
}

// NewRow allocates a state buffer.
func (a *Automaton) NewRow() []uint8 {
	return make([]uint8, a.RowSize())
}

// Start fills row with the initial state.
func (a *Automaton) Start(row []uint8) {
	for i := range row {
		row[i] = a.clip(i)
	}
}

// Step writes into dst the state reached from src after consuming r.
// dst and src must not alias.
func (a *Automaton) Step(dst, src []uint8, r rune) {
	dst[0] = a.clip(int(src[0]) + 1)
	for i := 1; i < len(dst); i++ {
		cost := int(src[i-1])
		if a.pattern[i-1] != r {
			cost++
		}
		if del := int(src[i]) + 1; del < cost {
			cost = del
		}
		if ins := int(dst[i-1]) + 1; ins < cost {
			cost = ins
		}
		dst[i] = a.clip(cost)
	}
}

// IsMatch reports whether the input consumed so far is within distance.
func (a *Automaton) IsMatch(row []uint8) bool {
	return row[len(row)-1] <= a.max
}

// CanMatch reports whether some continuation of the input can still match.
func (a *Automaton) CanMatch(row []uint8) bool {
	for _, v := range row {
		if v <= a.max {
			return true
		}
	}
	return false
}

// Distance returns the edit distance of the consumed input to the pattern,
// or maxDistance+1 when it is out of range.
func (a *Automaton) Distance(row []uint8) int {
	return int(row[len(row)-1])
}

// Accepts runs s through the automaton.
func (a *Automaton) Accepts(s string) bool {
	cur, next := a.NewRow(), a.NewRow()
	a.Start(cur)
	for _, r := range s {
		a.Step(next, cur, r)
		if !a.CanMatch(next) {
			return false
		}
		cur, next = next, cur
	}
	return a.IsMatch(cur)
}

func (a *Automaton) clip(v int) uint8 {
	if v > int(a.max)+1 {
		return a.max + 1
	}
	return uint8(v)
}
