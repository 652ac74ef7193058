package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Entry
		ok   bool
	}{
		{"apple,5", Entry{"apple", 5}, true},
		{"  Apple , 7 ", Entry{"apple", 7}, true},
		{"apple", Entry{"apple", 0}, true},
		{"apple,", Entry{"apple", 0}, true},
		{"apple,abc", Entry{"apple", 0}, true},
		{"apple,-3", Entry{"apple", 0}, true},
		{"apple,1,2", Entry{"apple", 0}, true},
		{"big,18446744073709551615", Entry{"big", 18446744073709551615}, true},
		{"over,18446744073709551616", Entry{"over", 0}, true},
		{"ÉCOLE,3", Entry{"école", 3}, true},
		{"", Entry{}, false},
		{"   ", Entry{}, false},
		{",5", Entry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestReadEntriesSorted(t *testing.T) {
	src := "\ufeffzebra,1\napple,5\n\nApple,9\nmango\napple,2\nkiwi,oops\r\n,4\n"

	entries, stats, err := ReadEntries(strings.NewReader(src), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{"apple", 9},
		{"kiwi", 0},
		{"mango", 0},
		{"zebra", 1},
	}, entries)
	assert.Equal(t, ReadStats{
		Lines:            8,
		Entries:          4,
		Skipped:          2,
		DefaultedWeights: 1,
		Merged:           2,
	}, stats)
}

func TestReadEntriesFileOrder(t *testing.T) {
	entries, _, err := ReadEntries(strings.NewReader("b,1\na,2\nb,3\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"b", 1}, {"a", 2}, {"b", 3}}, entries)
}

func TestReadEntriesInvalidEncoding(t *testing.T) {
	_, stats, err := ReadEntries(strings.NewReader("ok,1\nbad\xff,2\n"), DefaultReadOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 2, stats.Lines)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat,3\nbat,3\nhat,7\n"), 0o644))

	entries, stats, err := ReadFile(path, DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"bat", 3}, {"cat", 3}, {"hat", 7}}, entries)
	assert.Equal(t, 3, stats.Entries)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "nope.txt"), DefaultReadOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}
