// Package dictionary reads word lists and compiles them into index files.
package dictionary

import (
	"bufio"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// ErrInvalidEncoding is returned for sources that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("source is not valid UTF-8")

const maxLineSize = 1 << 20

// Entry is one word and its weight.
type Entry struct {
	Key    string
	Weight uint64
}

// ReadOptions controls how a source is read.
type ReadOptions struct {
	// Sort orders entries by key and merges duplicates, keeping the highest
	// weight. Without it entries keep file order and must already be sorted.
	Sort bool
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{Sort: true}
}

// ReadStats summarizes a read.
type ReadStats struct {
	Lines            int
	Entries          int
	Skipped          int
	DefaultedWeights int
	Merged           int
}

// ParseLine parses "word" or "word,weight". The line is split at the first
// comma, the word is normalized and a missing, empty or malformed weight
// becomes 0. ok is false when the word is empty.
func ParseLine(line string) (e Entry, ok bool) {
	e, ok, _ = parseLine(line)
	return e, ok
}

func parseLine(line string) (e Entry, ok bool, defaulted bool) {
	word, weight, hasWeight := strings.Cut(line, ",")
	e.Key = utils.NormalizeWord(word)
	if e.Key == "" {
		return e, false, false
	}
	if !hasWeight {
		return e, true, false
	}
	w, err := strconv.ParseUint(strings.TrimSpace(weight), 10, 64)
	if err != nil {
		return e, true, true
	}
	e.Weight = w
	return e, true, false
}

// ReadEntries reads a word list from r, one entry per line.
func ReadEntries(r io.Reader, opts ReadOptions) ([]Entry, ReadStats, error) {
	var stats ReadStats
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		stats.Lines++
		line := scanner.Text()
		if stats.Lines == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if !utf8.ValidString(line) {
			return nil, stats, errors.Wrapf(ErrInvalidEncoding, "line %d", stats.Lines)
		}

		e, ok, defaulted := parseLine(line)
		if !ok {
			stats.Skipped++
			continue
		}
		if defaulted {
			stats.DefaultedWeights++
			log.Debugf("Line %d: malformed weight for %q, using 0", stats.Lines, e.Key)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errors.Wrapf(err, "reading source after line %d", stats.Lines)
	}

	if opts.Sort {
		entries, stats.Merged = sortAndMerge(entries)
	}
	stats.Entries = len(entries)
	return entries, stats, nil
}

// ReadFile reads the word list at path.
func ReadFile(path string, opts ReadOptions) ([]Entry, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, errors.Wrapf(err, "opening source %s", path)
	}
	defer f.Close()

	entries, stats, err := ReadEntries(f, opts)
	if err != nil {
		return nil, stats, errors.Wrapf(err, "reading %s", path)
	}
	return entries, stats, nil
}

// sortAndMerge sorts entries by key and collapses duplicates into the
// highest weight seen.
func sortAndMerge(entries []Entry) ([]Entry, int) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})

	merged := 0
	out := entries[:0]
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Key == e.Key {
			out[n-1].Weight = max(out[n-1].Weight, e.Weight)
			merged++
			continue
		}
		out = append(out, e)
	}
	return out, merged
}
