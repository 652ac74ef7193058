package suggest

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func encode(t testing.TB, words map[string]uint64) []byte {
	t.Helper()
	keys := make([]string, 0, len(words))
	for k := range words {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	b := fst.NewBuilder(&buf)
	for _, k := range keys {
		require.NoError(t, b.Insert([]byte(k), words[k]))
	}
	require.NoError(t, b.Close())
	return buf.Bytes()
}

func newIndex(t testing.TB, words map[string]uint64) *fst.Index {
	t.Helper()
	ix, err := fst.Load(encode(t, words), fst.WithVerify())
	require.NoError(t, err)
	return ix
}

// writeIndex writes words to path the way a rebuild does: a temp file
// renamed into place.
func writeIndex(t testing.TB, path string, words map[string]uint64) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, encode(t, words), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func writeCorrupt(path string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("WFST not really an index at all, just bytes"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func openDict(t testing.TB, words map[string]uint64, opts Options) *Dictionary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.fst")
	writeIndex(t, path, words)
	d, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func keys(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Key
	}
	return out
}
