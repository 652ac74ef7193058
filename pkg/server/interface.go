/*
Package server implements msgpack IPC for fuzzy dictionary lookups.

Clients write a stream of msgpack maps to stdin and read one msgpack map per
request from stdout. Messages are processed synchronously in arrival order
with timing info included in search responses.

# IPC

A request without an action is a search:

	{"id": "req_001", "q": "aple", "l": 5}

The server responds with matches ranked best first:

	{"id": "req_001", "s": [{"w": "apple", "f": 5, "x": false, "r": 1}], "c": 1, "t": 84}

t is the search time in microseconds, x marks an exact match and f carries
the stored weight.

Other actions:

	{"id": "a", "action": "health"}
	{"id": "b", "action": "stats"}
	{"id": "c", "action": "reload"}

Failed requests get {"id", "e", "c"} with an HTTP-like status code:
400 for bad input, 408 when the search timed out, 503 when the dictionary
is closed and 500 for anything else.
*/
package server

// Actions understood by the server. An empty action means ActionSearch.
const (
	ActionSearch = "search"
	ActionStats  = "stats"
	ActionReload = "reload"
	ActionHealth = "health"
)

// Request is any client message
type Request struct {
	ID     string `msgpack:"id"`
	Query  string `msgpack:"q,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"action,omitempty"`
}

// Suggestion - one ranked match
type Suggestion struct {
	Word   string `msgpack:"w"`
	Weight uint64 `msgpack:"f"`
	Exact  bool   `msgpack:"x"`
	Rank   uint16 `msgpack:"r"`
}

// SearchResponse - search response
type SearchResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// StatusResponse answers health, stats and reload, and announces readiness.
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
