// Package suggest is the core, walking the persisted index with an edit-distance automaton and ranking what it finds.
package suggest

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidQuery is returned for queries that are not valid UTF-8.
	ErrInvalidQuery = errors.New("query is not valid UTF-8")
	// ErrClosed is returned by a Dictionary after Close.
	ErrClosed = errors.New("dictionary is closed")
)

// Result is a single match for a query.
type Result struct {
	Key    string
	Weight uint64
	Exact  bool
}

// ISearcher defines the interface front ends search through
type ISearcher interface {
	// Search returns the best matches for query using the configured limit
	Search(query string) ([]Result, time.Duration, error)

	// SearchLimit returns up to limit matches, honoring ctx cancellation
	SearchLimit(ctx context.Context, query string, limit int) ([]Result, time.Duration, error)

	// Reload reopens the index from disk
	Reload() error

	// Stats returns statistics about the loaded index
	Stats() map[string]int
}
