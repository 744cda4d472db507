// Package page knows the shape of the host site: which kind of page a URL is, where the
// species names sit on each kind, and where the typeahead surface and rows live.
package page

import (
	"net/url"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// Kind is a page family of the host site.
type Kind string

const (
	Checklist  Kind = "checklist"
	TripReport Kind = "tripreport"
	Hotspot    Kind = "hotspot"
	Region     Kind = "region"
	Targets    Kind = "targets"
	Printable  Kind = "printable"
	BarChart   Kind = "barchart"
	Alert      Kind = "alert"
	LifeList   Kind = "lifelist"
	Submit     Kind = "submit"
	Unknown    Kind = "unknown"
)

// Pattern binds a URL path glob to a page kind.
type Pattern struct {
	Kind Kind
	Glob string
}

// DefaultPatterns are tried in order; the first match wins.
var DefaultPatterns = []Pattern{
	{Checklist, "/checklist/*"},
	{TripReport, "/tripreport/**"},
	{Hotspot, "/hotspot/**"},
	{Region, "/region/**"},
	{Targets, "/targets"},
	{Targets, "/targets/**"},
	{Printable, "/printableList"},
	{Printable, "/printableList/**"},
	{BarChart, "/barchart"},
	{BarChart, "/barchart/**"},
	{Alert, "/alert/**"},
	{LifeList, "/lifelist"},
	{LifeList, "/lifelist/**"},
	{Submit, "/submit/**"},
}

// Resolver maps URLs to page kinds.
type Resolver struct {
	patterns []Pattern
}

// NewResolver returns a Resolver over patterns, or DefaultPatterns when none are given.
// Invalid globs are logged and skipped.
func NewResolver(patterns []Pattern) *Resolver {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	r := &Resolver{}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p.Glob) {
			log.Warn("page: skipping invalid url pattern", "kind", p.Kind, "glob", p.Glob)
			continue
		}
		r.patterns = append(r.patterns, p)
	}
	return r
}

// Resolve returns the kind of the page at rawURL. Both absolute URLs and bare paths are
// accepted; anything unrecognized is Unknown.
func (r *Resolver) Resolve(rawURL string) Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		log.Debug("page: unparsable url", "url", rawURL, "err", err)
		return Unknown
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, p := range r.patterns {
		if ok, _ := doublestar.Match(p.Glob, path); ok {
			return p.Kind
		}
	}
	return Unknown
}

// Resolve resolves rawURL with DefaultPatterns.
func Resolve(rawURL string) Kind {
	return defaultResolver.Resolve(rawURL)
}

var defaultResolver = NewResolver(nil)
