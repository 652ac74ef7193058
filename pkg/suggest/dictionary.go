package suggest

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/bastiangx/wordfst/pkg/levenshtein"
	"github.com/bastiangx/wordfst/pkg/metrics"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// Options controls how a Dictionary answers queries.
type Options struct {
	// Limit is the number of results returned by Search.
	Limit int
	// MaxLimit caps the limit a caller may ask for through SearchLimit.
	MaxLimit int
	// MaxDistance is the edit distance, 0 or 1.
	MaxDistance int
	// CacheSize is the number of queries kept in the hot cache. Zero disables it.
	CacheSize int
	// Timeout bounds a single search. Zero means no bound.
	Timeout time.Duration
	// Verify checks the index checksum on every open.
	Verify bool
	// Metrics receives search observations when non-nil.
	Metrics *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{
		Limit:       10,
		MaxLimit:    64,
		MaxDistance: 1,
	}
}

// Dictionary answers fuzzy queries over an index file. It is safe for
// concurrent use; Reload and Close wait for searches in flight.
type Dictionary struct {
	path  string
	opts  Options
	cache *HotCache

	mu    sync.RWMutex
	index *fst.Index

	searches atomic.Int64
	reloads  atomic.Int64
}

// Open opens the index at path.
func Open(path string, opts Options) (*Dictionary, error) {
	if err := levenshtein.ValidateDistance(opts.MaxDistance); err != nil {
		return nil, err
	}
	def := DefaultOptions()
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.Limit <= 0 {
		opts.Limit = def.Limit
	}
	opts.Limit = min(opts.Limit, opts.MaxLimit)

	index, err := openIndex(path, opts.Verify)
	if err != nil {
		return nil, err
	}

	d := &Dictionary{
		path:  path,
		opts:  opts,
		index: index,
	}
	if opts.CacheSize > 0 {
		d.cache = NewHotCache(opts.CacheSize)
	}
	opts.Metrics.ObserveIndex(index.Stats().Keys)
	log.Debugf("Opened dictionary %s with %d keys", path, index.Len())
	return d, nil
}

func openIndex(path string, verify bool) (*fst.Index, error) {
	var opts []fst.OpenOption
	if verify {
		opts = append(opts, fst.WithVerify())
	}
	return fst.Open(path, opts...)
}

// Path returns the index file this dictionary reads.
func (d *Dictionary) Path() string {
	return d.path
}

// Search returns the best matches for query with the configured limit.
func (d *Dictionary) Search(query string) ([]Result, time.Duration, error) {
	return d.SearchLimit(context.Background(), query, d.opts.Limit)
}

// SearchContext is Search with cancellation.
func (d *Dictionary) SearchContext(ctx context.Context, query string) ([]Result, time.Duration, error) {
	return d.SearchLimit(ctx, query, d.opts.Limit)
}

// SearchLimit returns up to limit matches for query, best first, along with
// the time taken. A non-positive limit uses the configured one.
func (d *Dictionary) SearchLimit(ctx context.Context, query string, limit int) ([]Result, time.Duration, error) {
	start := time.Now()
	results, err := d.search(ctx, query, limit)
	elapsed := time.Since(start)
	if results == nil && err == nil {
		elapsed = 0
	}
	d.opts.Metrics.ObserveSearch(elapsed, len(results), err)
	return results, elapsed, err
}

func (d *Dictionary) search(ctx context.Context, query string, limit int) ([]Result, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = d.opts.Limit
	}
	limit = min(limit, d.opts.MaxLimit)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.index == nil {
		return nil, ErrClosed
	}
	d.searches.Add(1)

	cacheKey := q + "\x00" + strconv.Itoa(limit)
	if d.cache != nil {
		if cached, ok := d.cache.Get(cacheKey); ok {
			d.opts.Metrics.ObserveCache(true)
			return cached, nil
		}
		d.opts.Metrics.ObserveCache(false)
	}

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	top := NewTopK(limit)
	err = match(ctx, d.index, q, d.opts.MaxDistance, func(r Result) error {
		top.Push(r)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "searching %q", q)
	}

	results := top.Results()
	d.cache.Put(cacheKey, results)
	return results, nil
}

// Reload reopens the index file, typically after a rebuild renamed a new
// file into place. The old mapping is released once in-flight searches
// finish. On error the current index stays in use.
func (d *Dictionary) Reload() error {
	index, err := openIndex(d.path, d.opts.Verify)
	if err != nil {
		return errors.Wrap(err, "reloading dictionary")
	}

	d.mu.Lock()
	old := d.index
	if old == nil {
		d.mu.Unlock()
		_ = index.Close()
		return ErrClosed
	}
	d.index = index
	d.cache.Reset()
	d.mu.Unlock()

	d.reloads.Add(1)
	d.opts.Metrics.ObserveReload(index.Stats().Keys)
	log.Infof("Reloaded dictionary %s (%d keys)", d.path, index.Len())
	return old.Close()
}

// Close releases the index. Searches after Close return ErrClosed.
func (d *Dictionary) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.index == nil {
		return nil
	}
	err := d.index.Close()
	d.index = nil
	return err
}

// Stats returns statistics about the loaded index.
func (d *Dictionary) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := map[string]int{
		"searches": int(d.searches.Load()),
		"reloads":  int(d.reloads.Load()),
	}
	if d.index != nil {
		st := d.index.Stats()
		stats["keys"] = int(st.Keys)
		stats["states"] = int(st.States)
		stats["edges"] = int(st.Edges)
		stats["bytes"] = int(st.Bytes)
	}
	for k, v := range d.cache.Stats() {
		stats[k] = v
	}
	return stats
}
