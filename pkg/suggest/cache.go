package suggest

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// HotCache keeps ranked results for recently seen queries in a patricia
// trie, evicting the least recently used entry when full.
type HotCache struct {
	hotTrie     *patricia.Trie
	accessTime  map[string]int64
	accessCount int64
	maxEntries  int
	hits        int
	misses      int
	mu          sync.Mutex
}

func NewHotCache(maxEntries int) *HotCache {
	return &HotCache{
		hotTrie:    patricia.NewTrie(),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the cached results for key.
func (hc *HotCache) Get(key string) ([]Result, bool) {
	if hc == nil {
		return nil, false
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	item := hc.hotTrie.Get(patricia.Prefix(key))
	if item == nil {
		hc.misses++
		return nil, false
	}
	hc.hits++
	hc.markAccessed(key)
	cached := item.([]Result)
	out := make([]Result, len(cached))
	copy(out, cached)
	return out, true
}

// Put stores a copy of results under key.
func (hc *HotCache) Put(key string, results []Result) {
	if hc == nil || hc.maxEntries <= 0 {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if _, ok := hc.accessTime[key]; !ok && len(hc.accessTime) >= hc.maxEntries {
		hc.evictLRU()
	}
	stored := make([]Result, len(results))
	copy(stored, results)
	hc.hotTrie.Set(patricia.Prefix(key), stored)
	hc.markAccessed(key)
}

// Reset drops every entry. Counters are kept.
func (hc *HotCache) Reset() {
	if hc == nil {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.hotTrie = patricia.NewTrie()
	hc.accessTime = make(map[string]int64, hc.maxEntries)
	log.Debug("Hot cache cleared")
}

func (hc *HotCache) Stats() map[string]int {
	if hc == nil {
		return map[string]int{}
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return map[string]int{
		"cacheEntries":    len(hc.accessTime),
		"maxCacheEntries": hc.maxEntries,
		"cacheHits":       hc.hits,
		"cacheMisses":     hc.misses,
	}
}

func (hc *HotCache) markAccessed(key string) {
	hc.accessCount++
	hc.accessTime[key] = hc.accessCount
}

func (hc *HotCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, accessTime := range hc.accessTime {
		if accessTime < oldestTime {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestTime != math.MaxInt64 {
		hc.hotTrie.Delete(patricia.Prefix(oldestKey))
		delete(hc.accessTime, oldestKey)
		log.Debugf("Evicted query %q from hot cache", oldestKey)
	}
}
