// Package cli runs the line-oriented search prompt.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bastiangx/wordfst/internal/logger"
	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/suggest"
	"github.com/charmbracelet/log"
)

// DefaultSentinel ends the loop when typed on its own.
const DefaultSentinel = "#q"

// InputHandler reads one query per line and prints the ranked matches.
type InputHandler struct {
	searcher     suggest.ISearcher
	sentinel     string
	in           *bufio.Reader
	out          io.Writer
	log          *log.Logger
	requestCount int
}

// NewInputHandler creates a handler on stdin/stdout. An empty sentinel
// means DefaultSentinel.
func NewInputHandler(searcher suggest.ISearcher, sentinel string) *InputHandler {
	return NewInputHandlerWithIO(searcher, sentinel, os.Stdin, os.Stdout)
}

// NewInputHandlerWithIO is NewInputHandler with explicit streams.
func NewInputHandlerWithIO(searcher suggest.ISearcher, sentinel string, in io.Reader, out io.Writer) *InputHandler {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return &InputHandler{
		searcher: searcher,
		sentinel: sentinel,
		in:       bufio.NewReader(in),
		out:      out,
		log:      logger.Plain(out, ""),
	}
}

// Start loops until the sentinel, end of input or ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(h.out, "Enter a word to search (type %s to exit): ", h.sentinel)

		line, err := h.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				fmt.Fprintln(h.out)
				return nil
			}
			return err
		}

		if utils.IsExitCommand(line, h.sentinel) {
			log.Debugf("Exiting after %d queries", h.requestCount)
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			fmt.Fprintln(h.out, "Enter a valid word")
			continue
		}
		h.handleInput(ctx, input)
	}
}

// handleInput runs one query and prints the outcome.
func (h *InputHandler) handleInput(ctx context.Context, query string) {
	h.requestCount++
	log.Debug("Processing request for", "query", query)

	results, elapsed, err := h.searcher.SearchLimit(ctx, query, 0)
	if err != nil {
		h.log.Errorf("Search failed: %v", err)
		return
	}

	h.log.Printf("Time to search: %v", elapsed)
	if len(results) == 0 {
		h.log.Printf("No matches for '%s'", query)
		return
	}

	h.log.Printf("Found %d results for '%s':", len(results), query)
	for i, r := range results {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", r.Key)
		marker := ""
		if r.Exact {
			marker = " *"
		}
		h.log.Printf("%2d. %-40s (weight: %8s)%s", i+1, clWord, utils.FormatWithCommas(r.Weight), marker)
	}
}
