/*
Package server exposes a birdserve session over msgpack IPC and HTTP.

# IPC

Clients write msgpack maps to stdin and read one msgpack map per request from stdout.
Every request carries an action and an optional id echoed in the response:

	{"id": "r1", "action": "load", "url": "https://ebird.org/checklist/S1", "html": "<html>..."}
	{"id": "r2", "action": "mutate", "sel": "#obs", "frag": "<div>...</div>"}
	{"id": "r3", "action": "keystroke", "text": "/dsq"}
	{"id": "r4", "action": "select", "i": 0}

Page actions answer with the pass report, typeahead actions with ranked suggestions:

	{"id": "r3", "claimed": true, "s": [{"n": "Great Tit", "c": "row-7", "r": 1}], "c": 1, "t": 85}

Failures answer with an error map carrying an HTTP-like code:

	{"id": "r2", "e": "session: mutation target not found: \"#obs\"", "c": 404}

Supported actions: load, mutate, render, keystroke, select, query, sync_seen, stats.

# HTTP

The HTTP API serves the same session as JSON:

	POST /annotate?url=...   page body in, report and rendered page out
	GET  /typeahead?q=&scope=global|local&limit=
	POST /seen/sync          life-list page body in, diff out
	GET  /stats
	GET  /healthz
*/
package server

import (
	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/seen"
	"github.com/bastiangx/birdserve/pkg/session"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// Request is any IPC request; fields are read according to Action.
type Request struct {
	ID       string `msgpack:"id"`
	Action   string `msgpack:"action"`
	URL      string `msgpack:"url,omitempty"`
	HTML     string `msgpack:"html,omitempty"`
	Selector string `msgpack:"sel,omitempty"`
	Fragment string `msgpack:"frag,omitempty"`
	Text     string `msgpack:"text,omitempty"`
	Index    int    `msgpack:"i,omitempty"`
	Term     string `msgpack:"p,omitempty"`
	Global   bool   `msgpack:"g,omitempty"`
	Limit    int    `msgpack:"l,omitempty"`
}

// Suggestion is one ranked typeahead result.
type Suggestion struct {
	Name  string `msgpack:"n" json:"name"`
	Code  string `msgpack:"c,omitempty" json:"code,omitempty"`
	Latin string `msgpack:"lt,omitempty" json:"latin,omitempty"`
	Rank  uint16 `msgpack:"r" json:"rank"`
}

// PageResponse answers load and mutate.
type PageResponse struct {
	ID        string         `msgpack:"id" json:"-"`
	Report    session.Report `msgpack:"report" json:"report"`
	HTML      string         `msgpack:"html,omitempty" json:"html,omitempty"`
	TimeTaken int64          `msgpack:"t" json:"time_us"`
}

// RenderResponse answers render.
type RenderResponse struct {
	ID   string `msgpack:"id"`
	HTML string `msgpack:"html"`
}

// SuggestResponse answers keystroke and query.
type SuggestResponse struct {
	ID          string       `msgpack:"id" json:"-"`
	Claimed     bool         `msgpack:"claimed" json:"claimed"`
	Suggestions []Suggestion `msgpack:"s" json:"suggestions"`
	Count       int          `msgpack:"c" json:"count"`
	TimeTaken   int64        `msgpack:"t" json:"time_us"`
}

// SelectResponse answers select.
type SelectResponse struct {
	ID       string     `msgpack:"id"`
	Selected Suggestion `msgpack:"sel"`
}

// SyncResponse answers sync_seen.
type SyncResponse struct {
	ID   string    `msgpack:"id" json:"-"`
	Diff seen.Diff `msgpack:"diff" json:"diff"`
}

// StatsResponse answers stats.
type StatsResponse struct {
	ID    string        `msgpack:"id" json:"-"`
	Stats session.Stats `msgpack:"stats" json:"stats"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id" json:"-"`
	Error string `msgpack:"e" json:"error"`
	Code  int    `msgpack:"c" json:"status"`
}

// toSuggestions ranks entries in order, keeping at most limit when limit is positive.
func toSuggestions(entries []typeahead.Entry, limit int) []Suggestion {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	ranks := utils.CreateRankList(len(entries))
	out := make([]Suggestion, len(entries))
	for i, e := range entries {
		out[i] = Suggestion{Name: e.CommonName, Code: e.Code, Latin: e.Latin, Rank: ranks[i]}
	}
	return out
}
