package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func startWatcher(t *testing.T, path string, debounce time.Duration, fn func(context.Context) error) {
	t.Helper()
	w, err := New(path, debounce, fn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		w.Close()
	})
}

func TestWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("a,1\n"), 0o644))

	var calls atomic.Int32
	startWatcher(t, path, 100*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i), ',', '1', '\n'}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherSeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("a,1\n"), 0o644))

	changed := make(chan struct{}, 4)
	startWatcher(t, path, 20*time.Millisecond, func(context.Context) error {
		changed <- struct{}{}
		return nil
	})

	tmp := filepath.Join(dir, "words.txt.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("b,2\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported after rename")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("a,1\n"), 0o644))

	var calls atomic.Int32
	startWatcher(t, path, 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestNewErrors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "f"), 0, nil)
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing", "f"), 0, func(context.Context) error { return nil })
	assert.Error(t, err)
}
