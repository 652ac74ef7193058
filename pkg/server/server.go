package server

import (
	"context"
	"io"
	"os"
	"unicode/utf8"

	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/levenshtein"
	"github.com/bastiangx/wordfst/pkg/metrics"
	"github.com/bastiangx/wordfst/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// MaxQueryLength bounds the query size in runes.
const MaxQueryLength = 256

// Options configures a Server. Zero values read stdin and write stdout.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Metrics *metrics.Metrics
	// Reload replaces the searcher's own Reload, e.g. to rebuild the index
	// from source first.
	Reload func(ctx context.Context) error
}

// Server handles the IPC for fuzzy lookups
type Server struct {
	searcher suggest.ISearcher
	dec      *msgpack.Decoder
	enc      *msgpack.Encoder
	reload   func(ctx context.Context) error
	metrics  *metrics.Metrics
	requests int
}

// NewServer creates a server over searcher
func NewServer(searcher suggest.ISearcher, opts Options) *Server {
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	reload := opts.Reload
	if reload == nil {
		reload = func(context.Context) error { return searcher.Reload() }
	}
	return &Server{
		searcher: searcher,
		dec:      msgpack.NewDecoder(in),
		enc:      msgpack.NewEncoder(out),
		reload:   reload,
		metrics:  opts.Metrics,
	}
}

// Start announces readiness and then serves requests until the input ends
// or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting server.")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := s.dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			return errors.Wrap(err, "reading request")
		}
		s.requests++

		if err := s.handle(ctx, raw); err != nil {
			return err
		}
	}
}

// handle returns only write errors; request errors go to the client.
func (s *Server) handle(ctx context.Context, raw msgpack.RawMessage) error {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		log.Debugf("Undecodable request: %v", err)
		s.metrics.ObserveRequest("invalid")
		return s.sendError("", "invalid msgpack request", 400)
	}

	action := req.Action
	if action == "" {
		action = ActionSearch
	}
	s.metrics.ObserveRequest(action)

	switch action {
	case ActionSearch:
		return s.handleSearch(ctx, req)
	case ActionHealth:
		return s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case ActionStats:
		return s.send(StatusResponse{ID: req.ID, Status: "ok", Stats: s.searcher.Stats()})
	case ActionReload:
		if err := s.reload(ctx); err != nil {
			log.Errorf("Reload failed: %v", err)
			return s.sendErr(req.ID, err)
		}
		return s.send(StatusResponse{ID: req.ID, Status: "reloaded", Stats: s.searcher.Stats()})
	default:
		return s.sendError(req.ID, "unknown action: "+req.Action, 400)
	}
}

func (s *Server) handleSearch(ctx context.Context, req Request) error {
	if req.Query == "" {
		return s.sendError(req.ID, "missing 'q' parameter", 400)
	}
	if utf8.RuneCountInString(req.Query) > MaxQueryLength {
		return s.sendError(req.ID, "query exceeds maximum length", 400)
	}

	results, elapsed, err := s.searcher.SearchLimit(ctx, req.Query, req.Limit)
	if err != nil {
		return s.sendErr(req.ID, err)
	}

	ranks := utils.CreateRankList(len(results))
	suggestions := make([]Suggestion, len(results))
	for i, r := range results {
		suggestions[i] = Suggestion{
			Word:   r.Key,
			Weight: r.Weight,
			Exact:  r.Exact,
			Rank:   ranks[i],
		}
	}

	return s.send(SearchResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// errorCode maps search and reload failures onto status codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, suggest.ErrInvalidQuery), errors.Is(err, levenshtein.ErrInvalidDistance):
		return 400
	case errors.Is(err, context.DeadlineExceeded):
		return 408
	case errors.Is(err, suggest.ErrClosed):
		return 503
	default:
		return 500
	}
}

func (s *Server) sendErr(id string, err error) error {
	return s.sendError(id, err.Error(), errorCode(err))
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

func (s *Server) send(response any) error {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Writing response: %v", err)
		return errors.Wrap(err, "writing response")
	}
	return nil
}

// Requests returns how many messages have been read so far.
func (s *Server) Requests() int {
	return s.requests
}
