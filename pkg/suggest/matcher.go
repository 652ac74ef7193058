package suggest

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/bastiangx/wordfst/pkg/levenshtein"
)

// cancelCheckInterval is how many automaton steps run between context checks.
const cancelCheckInterval = 64

// NormalizeQuery validates q and brings it into the same form as the
// dictionary keys.
func NormalizeQuery(q string) (string, error) {
	if !utf8.ValidString(q) {
		return "", ErrInvalidQuery
	}
	return utils.NormalizeWord(q), nil
}

// Match walks index with a Levenshtein automaton for query and calls emit once
// for every key within maxDistance, in lexicographic key order. A non-nil
// error from emit stops the walk and is returned.
func Match(ctx context.Context, index *fst.Index, query string, maxDistance int, emit func(Result) error) error {
	if err := levenshtein.ValidateDistance(maxDistance); err != nil {
		return err
	}
	q, err := NormalizeQuery(query)
	if err != nil {
		return err
	}
	return match(ctx, index, q, maxDistance, emit)
}

// match expects a normalized query.
func match(ctx context.Context, index *fst.Index, q string, maxDistance int, emit func(Result) error) error {
	if q == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	aut, err := levenshtein.New(q, maxDistance)
	if err != nil {
		return err
	}

	m := &matcher{
		done:  ctx.Done(),
		ctx:   ctx,
		index: index,
		aut:   aut,
		query: []byte(q),
		emit:  emit,
		key:   make([]byte, 0, len(q)+8),
	}
	m.rows = append(m.rows, aut.NewRow())
	aut.Start(m.rows[0])
	return m.walk(index.Root(), 0, 0)
}

type matcher struct {
	done  <-chan struct{}
	ctx   context.Context
	index *fst.Index
	aut   *levenshtein.Automaton
	query []byte
	emit  func(Result) error

	key   []byte
	rows  [][]uint8
	steps int
}

// walk visits state s. depth is the number of code points consumed so far
// and pending is the offset in key where the current partial code point
// starts.
func (m *matcher) walk(s fst.StateID, depth, pending int) error {
	if pending == len(m.key) && m.aut.IsMatch(m.rows[depth]) {
		if w, ok := m.index.Weight(s); ok {
			r := Result{
				Key:    string(m.key),
				Weight: w,
				Exact:  bytes.Equal(m.key, m.query),
			}
			if err := m.emit(r); err != nil {
				return err
			}
		}
	}

	n := m.index.NumEdges(s)
	for i := 0; i < n; i++ {
		label, next := m.index.Edge(s, i)
		m.key = append(m.key, label)
		err := m.advance(next, depth, pending)
		m.key = m.key[:len(m.key)-1]
		if err != nil {
			return err
		}
	}
	return nil
}

// advance feeds the newest key byte to the automaton once it completes a
// code point. Keys are valid UTF-8, so a malformed sequence only appears in
// hand-built indexes; it is consumed as a single replacement rune.
func (m *matcher) advance(next fst.StateID, depth, pending int) error {
	seq := m.key[pending:]
	if !utf8.FullRune(seq) {
		return m.walk(next, depth, pending)
	}
	r, size := utf8.DecodeRune(seq)
	if size != len(seq) {
		r = utf8.RuneError
	}

	m.steps++
	if m.done != nil && m.steps%cancelCheckInterval == 0 {
		select {
		case <-m.done:
			return m.ctx.Err()
		default:
		}
	}

	if len(m.rows) <= depth+1 {
		m.rows = append(m.rows, m.aut.NewRow())
	}
	row := m.rows[depth+1]
	m.aut.Step(row, m.rows[depth], r)
	if !m.aut.CanMatch(row) {
		return nil
	}
	return m.walk(next, depth+1, len(m.key))
}
