package dictionary

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRebuild(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "apply,9\napple,5\nApple,1\nbanana\n")
	index := filepath.Join(dir, "out", "dict.fst")

	stats, err := Rebuild(source, index, DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Index.Keys)
	assert.Equal(t, 1, stats.Read.Merged)

	ix, err := fst.Open(index, fst.WithVerify())
	require.NoError(t, err)
	defer ix.Close()

	for key, want := range map[string]uint64{"apple": 5, "apply": 9, "banana": 0} {
		got, ok := ix.Get([]byte(key))
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRebuildUnsortedWithoutSort(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "b,1\na,2\n")
	index := filepath.Join(dir, "dict.fst")

	_, err := Rebuild(source, index, ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fst.ErrUnsortedInput)

	_, statErr := os.Stat(index)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestRebuildReplacesMappedIndex(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "old,1\n")
	index := filepath.Join(dir, "dict.fst")

	_, err := Rebuild(source, index, DefaultReadOptions())
	require.NoError(t, err)
	ix, err := fst.Open(index)
	require.NoError(t, err)
	defer ix.Close()

	writeSource(t, dir, "new,2\n")
	_, err = Rebuild(source, index, DefaultReadOptions())
	require.NoError(t, err)

	// The open mapping still sees the old file.
	_, ok := ix.Get([]byte("old"))
	assert.True(t, ok)

	fresh, err := fst.Open(index)
	require.NoError(t, err)
	defer fresh.Close()
	_, ok = fresh.Get([]byte("new"))
	assert.True(t, ok)
}

func TestNeedsRebuild(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "dict.txt")
	index := filepath.Join(dir, "dict.fst")

	_, err := NeedsRebuild(source, index)
	assert.ErrorIs(t, err, fs.ErrNotExist, "neither file exists")

	writeSource(t, dir, "a,1\n")
	stale, err := NeedsRebuild(source, index)
	require.NoError(t, err)
	assert.True(t, stale, "index missing")

	_, err = Rebuild(source, index, DefaultReadOptions())
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(source, old, old))
	stale, err = NeedsRebuild(source, index)
	require.NoError(t, err)
	assert.False(t, stale, "index newer than source")

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(source, future, future))
	stale, err = NeedsRebuild(source, index)
	require.NoError(t, err)
	assert.True(t, stale, "source newer than index")

	require.NoError(t, os.Remove(source))
	stale, err = NeedsRebuild(source, index)
	require.NoError(t, err)
	assert.False(t, stale, "source gone, index kept")
}

func TestEnsureIndex(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "a,1\n")
	index := filepath.Join(dir, "dict.fst")

	built, _, err := EnsureIndex(source, index, false, DefaultReadOptions())
	require.NoError(t, err)
	assert.True(t, built)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(source, old, old))
	built, _, err = EnsureIndex(source, index, false, DefaultReadOptions())
	require.NoError(t, err)
	assert.False(t, built)

	built, stats, err := EnsureIndex(source, index, true, DefaultReadOptions())
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, uint64(1), stats.Index.Keys)
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "a,1\nb,2\nc,3\n")
	index := filepath.Join(dir, "dict.fst")
	_, err := Rebuild(source, index, DefaultReadOptions())
	require.NoError(t, err)

	info, err := Inspect(index)
	require.NoError(t, err)
	assert.Equal(t, FormatIndex, info.Format)
	assert.Equal(t, uint64(3), info.Header.Keys)

	info, err = Inspect(source)
	require.NoError(t, err)
	assert.Equal(t, FormatText, info.Format)
	assert.Equal(t, 3, info.Lines)

	fake := filepath.Join(dir, "fake.fst")
	require.NoError(t, os.WriteFile(fake, []byte("plain words\n"), 0o644))
	_, err = Inspect(fake)
	assert.Error(t, err)

	binary := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00, 0x80}, 0o644))
	_, err = Inspect(binary)
	assert.Error(t, err)
}
