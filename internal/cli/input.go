// Package cli handles cmd line species lookups for DBG and testing the typeahead index
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// Querier answers lookups against the global or the visible-rows index.
type Querier interface {
	Query(term string, global bool) []typeahead.Entry
}

// InputHandler reads lookup terms line by line and prints ranked species.
// A line starting with "/" queries the rows of the loaded page instead of the
// whole vocabulary; "//" forces the global index.
type InputHandler struct {
	querier      Querier
	suggestLimit int
	showLatin    bool
	noFilter     bool
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(querier Querier, limit int, showLatin, noFilter bool) *InputHandler {
	return &InputHandler{
		querier:      querier,
		suggestLimit: limit,
		showLatin:    showLatin,
		noFilter:     noFilter,
	}
}

// Start runs the lookup loop on stdin and stdout until stdin closes.
func (h *InputHandler) Start() error {
	log.Print("BirdServe CLI [BETA]")
	log.Print("type a pinyin key or initials and press Enter (Ctrl+C to exit):")
	return h.Run(os.Stdin, os.Stdout)
}

// Run reads terms from r and writes results to w. Reaching the end of r is not an error.
func (h *InputHandler) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h.handleInput(w, line)
	}
	return scanner.Err()
}

// route strips the scope prefix off a line.
func route(line string) (term string, global bool) {
	switch {
	case strings.HasPrefix(line, typeahead.DefaultGlobalPrefix):
		return strings.TrimPrefix(line, typeahead.DefaultGlobalPrefix), true
	case strings.HasPrefix(line, typeahead.DefaultLocalPrefix):
		return strings.TrimPrefix(line, typeahead.DefaultLocalPrefix), false
	}
	return line, true
}

func (h *InputHandler) handleInput(w io.Writer, line string) {
	h.requestCount++
	term, global := route(line)
	term = strings.TrimSpace(term)

	if !h.noFilter && !utils.IsValidTerm(term) {
		log.Warnf("No results found for term: '%s' (filtered out)", term)
		return
	}

	start := time.Now()
	results := h.querier.Query(term, global)
	log.Debugf("Took [ %v ] for term '%s' (global=%v)", time.Since(start), term, global)

	if h.suggestLimit > 0 && len(results) > h.suggestLimit {
		results = results[:h.suggestLimit]
	}
	if len(results) == 0 {
		log.Warnf("No species found for term: '%s'", term)
		return
	}

	fmt.Fprintln(w, header(len(results), term, global))
	for i, e := range results {
		fmt.Fprintln(w, formatEntry(i+1, e, h.showLatin))
	}
}
