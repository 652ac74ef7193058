package suggest

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/bastiangx/wordfst/pkg/levenshtein"
	"github.com/blevesearch/vellum"
	vlev "github.com/blevesearch/vellum/levenshtein"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = map[string]uint64{
	"apple": 5, "apply": 9, "ample": 2, "maple": 4, "apples": 3, "appel": 1,
	"cat": 3, "bat": 3, "hat": 7, "cart": 2, "at": 8, "chat": 6, "coat": 1,
	"international": 10, "internationally": 4, "intranational": 2,
	"word": 50, "words": 40, "world": 45, "sword": 12, "ward": 7, "wore": 3,
	"café": 20, "cafe": 15, "cafés": 5, "naïve": 11, "naive": 9,
	"中文": 30, "中国": 25, "文": 1,
}

func matchAll(t *testing.T, words map[string]uint64, query string, d int) []Result {
	t.Helper()
	ix := newIndex(t, words)
	var got []Result
	require.NoError(t, Match(context.Background(), ix, query, d, func(r Result) error {
		got = append(got, r)
		return nil
	}))
	return got
}

func TestMatchFindsWithinDistance(t *testing.T) {
	tests := []struct {
		query string
		d     int
		want  []string
	}{
		{"apple", 0, []string{"apple"}},
		{"apple", 1, []string{"ample", "apple", "apples", "apply"}},
		{"cat", 1, []string{"at", "bat", "cart", "cat", "chat", "coat", "hat"}},
		{"interational", 1, []string{"international"}},
		{"cafe", 1, []string{"cafe", "café"}},
		{"word", 1, []string{"sword", "ward", "word", "words", "wore", "world"}},
		{"naive", 0, []string{"naive"}},
		{"中", 1, []string{"中国", "中文", "文"}},
		{"zzzzzz", 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := matchAll(t, corpus, tt.query, tt.d)
			assert.Equal(t, tt.want, nilIfEmpty(keys(got)))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestMatchMarksExact(t *testing.T) {
	got := matchAll(t, corpus, "  APPLE ", 1)
	require.NotEmpty(t, got)

	for _, r := range got {
		assert.Equal(t, r.Key == "apple", r.Exact, r.Key)
		assert.Equal(t, corpus[r.Key], r.Weight, r.Key)
	}
}

func TestMatchNormalizesComposition(t *testing.T) {
	// "cafe" followed by a combining acute accent composes to "café".
	got := matchAll(t, corpus, "Cafe\u0301", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "café", got[0].Key)
	assert.True(t, got[0].Exact)
}

func TestMatchEmitsEachKeyOnce(t *testing.T) {
	got := matchAll(t, corpus, "word", 1)
	seen := map[string]int{}
	for _, r := range got {
		seen[r.Key]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, k)
	}
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Key < got[j].Key }))
}

func TestMatchEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		assert.Empty(t, matchAll(t, corpus, q, 1), "%q", q)
	}
}

func TestMatchErrors(t *testing.T) {
	ix := newIndex(t, corpus)
	noop := func(Result) error { return nil }

	err := Match(context.Background(), ix, "\xff\xfe", 1, noop)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	err = Match(context.Background(), ix, "apple", 2, noop)
	assert.ErrorIs(t, err, levenshtein.ErrInvalidDistance)

	// Distance is rejected even when the query would short-circuit.
	err = Match(context.Background(), ix, "", -1, noop)
	assert.ErrorIs(t, err, levenshtein.ErrInvalidDistance)

	stop := errors.New("stop")
	err = Match(context.Background(), ix, "cat", 1, func(Result) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestMatchCancelled(t *testing.T) {
	ix := newIndex(t, corpus)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Match(ctx, ix, "apple", 1, func(Result) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchCancelledMidWalk(t *testing.T) {
	words := make(map[string]uint64)
	for _, a := range "abcdefghijklmnopqrstuvwxyz" {
		for _, b := range "abcdefghijklmnopqrstuvwxyz" {
			words[string([]rune{'a', a, b})] = 1
		}
	}
	ix := newIndex(t, words)
	ctx, cancel := context.WithCancel(context.Background())

	emitted := 0
	err := Match(ctx, ix, "aaa", 1, func(Result) error {
		emitted++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, emitted, 51)
}

// bruteForce scans every word with a plain distance check.
func bruteForce(words map[string]uint64, query string, d int) []string {
	aut, _ := levenshtein.New(query, d)
	var out []string
	for w := range words {
		if aut.Accepts(w) {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// vellumMatches runs the same query through vellum's Levenshtein DFA.
func vellumMatches(t *testing.T, words map[string]uint64, query string, d int) []string {
	t.Helper()
	sorted := make([]string, 0, len(words))
	for w := range words {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)

	var buf bytes.Buffer
	b, err := vellum.New(&buf, nil)
	require.NoError(t, err)
	for _, w := range sorted {
		require.NoError(t, b.Insert([]byte(w), words[w]))
	}
	require.NoError(t, b.Close())

	fst, err := vellum.Load(buf.Bytes())
	require.NoError(t, err)

	lb, err := vlev.NewLevenshteinAutomatonBuilder(uint8(d), false)
	require.NoError(t, err)
	dfa, err := lb.BuildDfa(query, uint8(d))
	require.NoError(t, err)

	var out []string
	itr, err := fst.Search(dfa, nil, nil)
	for err == nil {
		k, _ := itr.Current()
		out = append(out, string(k))
		err = itr.Next()
	}
	require.ErrorIs(t, err, vellum.ErrIteratorDone)
	return out
}

func TestMatchAgreesWithReferences(t *testing.T) {
	queries := []string{
		"apple", "aple", "appple", "cat", "ct", "hat", "word", "wrd", "worlds",
		"international", "interational", "cafe", "café", "naive", "中文", "中", "x",
	}

	for _, q := range queries {
		for _, d := range []int{0, 1} {
			got := keys(matchAll(t, corpus, q, d))
			assert.Equal(t, nilIfEmpty(bruteForce(corpus, q, d)), nilIfEmpty(got), "brute force %q d=%d", q, d)
			if d == 1 {
				assert.Equal(t, nilIfEmpty(vellumMatches(t, corpus, q, d)), nilIfEmpty(got), "vellum %q", q)
			}
		}
	}
}
