package suggest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotCacheGetPut(t *testing.T) {
	hc := NewHotCache(4)

	_, ok := hc.Get("apple")
	assert.False(t, ok)

	in := []Result{{"apple", 5, true}, {"apply", 9, false}}
	hc.Put("apple", in)
	in[0].Key = "mutated"

	got, ok := hc.Get("apple")
	require.True(t, ok)
	assert.Equal(t, "apple", got[0].Key)

	got[1].Key = "mutated"
	again, _ := hc.Get("apple")
	assert.Equal(t, "apply", again[1].Key)

	stats := hc.Stats()
	assert.Equal(t, 2, stats["cacheHits"])
	assert.Equal(t, 1, stats["cacheMisses"])
	assert.Equal(t, 1, stats["cacheEntries"])
}

func TestHotCacheEvictsLeastRecentlyUsed(t *testing.T) {
	hc := NewHotCache(3)
	for i := 0; i < 3; i++ {
		hc.Put(fmt.Sprintf("q%d", i), []Result{{Key: "x"}})
	}
	// Touch q0 so q1 becomes the oldest.
	_, ok := hc.Get("q0")
	require.True(t, ok)

	hc.Put("q3", nil)

	_, ok = hc.Get("q1")
	assert.False(t, ok, "q1 should have been evicted")
	for _, k := range []string{"q0", "q2", "q3"} {
		_, ok := hc.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, hc.Stats()["cacheEntries"])
}

func TestHotCacheEmptyResultsAreCached(t *testing.T) {
	hc := NewHotCache(2)
	hc.Put("zzz", nil)

	got, ok := hc.Get("zzz")
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHotCacheReset(t *testing.T) {
	hc := NewHotCache(2)
	hc.Put("a", []Result{{Key: "a"}})
	hc.Reset()

	_, ok := hc.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, hc.Stats()["cacheEntries"])
}

func TestNilHotCache(t *testing.T) {
	var hc *HotCache
	assert.NotPanics(t, func() {
		hc.Put("a", nil)
		_, ok := hc.Get("a")
		assert.False(t, ok)
		hc.Reset()
		assert.Empty(t, hc.Stats())
	})
}
