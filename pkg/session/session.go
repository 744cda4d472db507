/*
Package session runs the page passes for one browsing context.

A Session owns the loaded datasets, the current document and every piece of per-page state:
the rewrite and unseen mark sets, the change feed, the debounced visible-rows rebuild and
the typeahead controller. Three handlers are subscribed to the feed, in order:

	rewrite   replace vocabulary names in the changed subtree
	classify  decide and annotate the page's candidate name cells
	rows      schedule a rebuild of the visible typeahead index

Every entry point serializes on one mutex. Until Attach is called the session is inert:
pages load and render untouched and typeahead queries return nothing.
*/
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/internal/logger"
	"github.com/bastiangx/birdserve/pkg/classify"
	"github.com/bastiangx/birdserve/pkg/dataset"
	"github.com/bastiangx/birdserve/pkg/feed"
	"github.com/bastiangx/birdserve/pkg/mark"
	"github.com/bastiangx/birdserve/pkg/names"
	"github.com/bastiangx/birdserve/pkg/page"
	"github.com/bastiangx/birdserve/pkg/rewrite"
	"github.com/bastiangx/birdserve/pkg/seen"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

var (
	// ErrNotLoaded is returned by page operations before any page was loaded.
	ErrNotLoaded = errors.New("session: no page loaded")
	// ErrNoTarget is returned by Mutate when the selector matches nothing.
	ErrNoTarget = errors.New("session: mutation target not found")
)

// Options configure a Session. Zero values fall back to package defaults.
type Options struct {
	Highlight    classify.Options
	LocalPrefix  string
	GlobalPrefix string
	Debounce     time.Duration
	RowSpec      page.RowSpec
	Container    string
	LifeList     seen.Selectors
	URLPatterns  []page.Pattern
	// Store persists the life list. Without one the list only lives in memory.
	Store seen.Store
}

// Report summarizes the work done by one Load or Mutate.
type Report struct {
	URL       string     `msgpack:"url" json:"url"`
	Kind      page.Kind  `msgpack:"kind" json:"kind"`
	Rewritten int        `msgpack:"rewritten" json:"rewritten"`
	Flagged   int        `msgpack:"flagged" json:"flagged"`
	Endemic   int        `msgpack:"endemic" json:"endemic"`
	Sync      *seen.Diff `msgpack:"sync,omitempty" json:"sync,omitempty"`
}

// Stats is a snapshot of the session state.
type Stats struct {
	Loaded       bool      `msgpack:"loaded" json:"loaded"`
	URL          string    `msgpack:"url" json:"url"`
	Kind         page.Kind `msgpack:"kind" json:"kind"`
	Names        int       `msgpack:"names" json:"names"`
	Endemic      int       `msgpack:"endemic" json:"endemic"`
	Seen         int       `msgpack:"seen" json:"seen"`
	Typeahead    int       `msgpack:"typeahead" json:"typeahead"`
	Visible      int       `msgpack:"visible" json:"visible"`
	RewriteMarks int       `msgpack:"rewrite_marks" json:"rewrite_marks"`
	UnseenMarks  int       `msgpack:"unseen_marks" json:"unseen_marks"`
}

type counters struct {
	rewritten, flagged, endemic int
}

// Session is the per-browsing-context engine.
type Session struct {
	mu   sync.Mutex
	opts Options
	log  *log.Logger

	locator  page.Locator
	resolver *page.Resolver
	store    seen.Store

	// datasets
	attached bool
	names    *names.Index
	endemic  map[string][]string
	seenList []seen.Species
	seenSet  map[string]struct{}
	global   *typeahead.Index

	// current page
	url        string
	kind       page.Kind
	doc        *html.Node
	rewritten  *mark.Set
	unseen     *mark.Set
	classifier *classify.Classifier
	visible    *typeahead.Index
	controller *typeahead.Controller
	count      counters

	feed *feed.Dispatcher
	rows *feed.Debouncer
}

// New returns an inert Session. A nil locator uses the default page selectors.
func New(opts Options, locator page.Locator) *Session {
	if locator == nil {
		locator = page.NewSelectorLocator(nil)
	}
	if opts.Store == nil {
		opts.Store = seen.NewMemoryStore(nil)
	}
	s := &Session{
		opts:     opts,
		log:      logger.New("session"),
		locator:  locator,
		resolver: page.NewResolver(opts.URLPatterns),
		store:    opts.Store,
		seenSet:  map[string]struct{}{},
		endemic:  map[string][]string{},
		feed:     feed.NewDispatcher(),
	}
	s.rows = feed.NewDebouncer(opts.Debounce, s.rebuildRows)

	s.feed.Subscribe("rewrite", s.handleRewrite)
	s.feed.Subscribe("classify", s.handleClassify)
	s.feed.Subscribe("rows", s.handleRows)
	return s
}

// Attach installs datasets and the stored life list. A page already loaded is run through
// the page passes; nodes it already marked keep their annotations.
func (s *Session) Attach(b *dataset.Bundle, list []seen.Species) {
	if b == nil {
		b = &dataset.Bundle{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.names = names.Build(b.Names)
	s.endemic = b.Endemic
	if s.endemic == nil {
		s.endemic = map[string][]string{}
	}
	s.global = typeahead.BuildGlobal(b.Typeahead)
	s.setSeen(list)
	s.attached = true
	if s.doc != nil {
		s.classifier = classify.New(s.seenSet, s.endemic, s.unseen, s.opts.Highlight)
		s.rebuildVisible()
		// the loaded page was served untouched so far
		s.feed.Publish(feed.Change{Root: s.doc})
		s.feed.Drain()
	}
	s.log.Info("datasets attached", "names", s.names.Len(), "endemic", len(s.endemic),
		"typeahead", s.global.Len(), "seen", len(s.seenSet))
}

func (s *Session) setSeen(list []seen.Species) {
	s.seenList = seen.Dedupe(list)
	s.seenSet = seen.Set(s.seenList)
}

// Load replaces the current page with the document read from r and runs the page passes
// over it. Visiting the life-list page syncs the stored life list first.
func (s *Session) Load(ctx context.Context, url string, r io.Reader) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("parse page %s: %w", url, err)
	}

	s.rows.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.url = url
	s.kind = s.resolver.Resolve(url)
	s.doc = doc
	s.rewritten = mark.New(mark.Rewrite)
	s.unseen = mark.New(mark.Unseen)
	s.count = counters{}
	s.visible = typeahead.BuildVisible(s.global, nil)
	s.controller = typeahead.NewController(
		indexes{s},
		page.NewListSurface(s.document, s.opts.Container),
		page.NewDOMJumper(s.document, s.opts.RowSpec),
		s.opts.LocalPrefix, s.opts.GlobalPrefix,
	)

	report := Report{URL: url, Kind: s.kind}
	if s.kind == page.LifeList {
		diff, err := s.syncLocked(ctx, seen.FromDocument(doc, s.opts.LifeList))
		if err != nil {
			s.log.Warn("life list sync failed", "err", err)
		} else {
			report.Sync = &diff
		}
	}
	s.classifier = classify.New(s.seenSet, s.endemic, s.unseen, s.opts.Highlight)

	s.feed.Publish(feed.Change{Root: doc})
	s.feed.Drain()

	report.Rewritten, report.Flagged, report.Endemic = s.count.rewritten, s.count.flagged, s.count.endemic
	s.log.Debug("page loaded", "url", url, "kind", s.kind, "rewritten", report.Rewritten, "flagged", report.Flagged)
	return report, nil
}

// Mutate parses fragment in the context of the first element matching selector, appends
// the result to it and runs the page passes over the new nodes.
func (s *Session) Mutate(ctx context.Context, selector, fragment string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return Report{}, ErrNotLoaded
	}
	target := goquery.NewDocumentFromNode(s.doc).Find(selector).First()
	if target.Length() == 0 {
		s.log.Warn("mutation target missing", "selector", selector, "url", s.url)
		return Report{}, fmt.Errorf("%w: %q", ErrNoTarget, selector)
	}
	parent := target.Nodes[0]

	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return Report{}, fmt.Errorf("parse fragment: %w", err)
	}

	before := s.count
	now := time.Now()
	for _, n := range nodes {
		parent.AppendChild(n)
		s.feed.Publish(feed.Change{Root: n, At: now})
	}
	s.feed.Drain()

	return Report{
		URL:       s.url,
		Kind:      s.kind,
		Rewritten: s.count.rewritten - before.rewritten,
		Flagged:   s.count.flagged - before.flagged,
		Endemic:   s.count.endemic - before.endemic,
	}, nil
}

// Render serializes the current document.
func (s *Session) Render() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNotLoaded
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, s.doc); err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return buf.String(), nil
}

// Keystroke forwards the typeahead control's text. It reports whether the keystroke was
// claimed, along with the rendered results.
func (s *Session) Keystroke(text string) (bool, []typeahead.Entry) {
	// a pending rebuild locks the session itself
	s.rows.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil {
		return false, nil
	}
	claimed := s.controller.Keystroke(text)
	return claimed, s.controller.Results()
}

// Select jumps to the i-th rendered typeahead result.
func (s *Session) Select(i int) (typeahead.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil {
		return typeahead.Entry{}, ErrNotLoaded
	}
	return s.controller.Select(i)
}

// Query looks term up directly, in the global index or in the visible rows.
func (s *Session) Query(term string, global bool) []typeahead.Entry {
	s.rows.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if global {
		return s.global.Query(term)
	}
	return s.visible.Query(term)
}

// SyncSeen rebuilds the life list from a life-list page read from r.
func (s *Session) SyncSeen(ctx context.Context, r io.Reader) (seen.Diff, error) {
	list, err := seen.ParseLifeList(r, s.opts.LifeList)
	if err != nil {
		return seen.Diff{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked(ctx, list)
}

// syncLocked persists list and swaps the seen set. Elements already decided on the current
// page keep their annotations.
func (s *Session) syncLocked(ctx context.Context, list []seen.Species) (seen.Diff, error) {
	diff, err := seen.Sync(ctx, s.store, list)
	if err != nil {
		return seen.Diff{}, err
	}
	s.setSeen(list)
	if s.doc != nil {
		s.classifier = classify.New(s.seenSet, s.endemic, s.unseen, s.opts.Highlight)
	}
	s.log.Info("life list synced", "total", len(s.seenList), "added", diff.Added, "removed", diff.Removed)
	return diff, nil
}

// Stats returns a snapshot of the session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Loaded:    s.attached,
		URL:       s.url,
		Kind:      s.kind,
		Names:     s.names.Len(),
		Endemic:   len(s.endemic),
		Seen:      len(s.seenSet),
		Typeahead: s.global.Len(),
		Visible:   s.visible.Len(),
	}
	if s.rewritten != nil {
		st.RewriteMarks = s.rewritten.Len()
		st.UnseenMarks = s.unseen.Len()
	}
	return st
}

// Close stops pending work.
func (s *Session) Close() {
	s.rows.Stop()
}

// document is read by the surface and jumper, always under s.mu.
func (s *Session) document() *html.Node {
	return s.doc
}

// Handlers run inside Drain, with s.mu held by the publishing entry point.

func (s *Session) handleRewrite(c feed.Change) error {
	if !s.attached {
		return nil
	}
	s.count.rewritten += rewrite.Subtree(c.Root, s.names, s.rewritten)
	return nil
}

func (s *Session) handleClassify(feed.Change) error {
	if !s.attached || s.classifier == nil {
		return nil
	}
	for _, out := range s.classifier.Classify(s.locator.Candidates(s.doc, s.kind)) {
		switch out.Decision.Verdict {
		case classify.EndemicUnseen:
			s.count.endemic++
			s.count.flagged++
		case classify.CommonUnseen:
			s.count.flagged++
		}
	}
	return nil
}

func (s *Session) handleRows(feed.Change) error {
	if !s.attached {
		return nil
	}
	s.rows.Trigger()
	return nil
}

// rebuildRows is the debounced callback; it runs outside any entry point.
func (s *Session) rebuildRows() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildVisible()
}

func (s *Session) rebuildVisible() {
	if s.doc == nil {
		return
	}
	rows := page.Rows(s.doc, s.opts.RowSpec)
	s.visible = typeahead.BuildVisible(s.global, page.Visible(rows))
	s.log.Debug("visible rows rebuilt", "rows", len(rows), "indexed", s.visible.Len())
}

// indexes exposes the session's indexes to the controller without locking.
type indexes struct{ s *Session }

func (i indexes) Global() *typeahead.Index  { return i.s.global }
func (i indexes) Visible() *typeahead.Index { return i.s.visible }
