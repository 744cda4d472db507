package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
)

// Locator finds the elements holding species names for a page kind.
type Locator interface {
	Candidates(doc *html.Node, kind Kind) []*html.Node
}

// DefaultSelectors are the name cells of each page kind.
var DefaultSelectors = map[Kind][]string{
	Checklist:  {".Observation-species .Heading-main", ".Observation-species .Heading-sub--common"},
	TripReport: {".ResultsStats-title .Heading-main", ".Species-common"},
	Hotspot:    {".ResultsStats-title .Heading-main", ".Species-common"},
	Region:     {".ResultsStats-title .Heading-main", ".Species-common"},
	Targets:    {".ResultsStats-title .Heading-main", ".SpecimenHeader-joined a"},
	Printable:  {".subitem .common", "td.species-name"},
	BarChart:   {".barChart-species .species-name", "td.species-name a"},
	Alert:      {".Observation-species .Heading-main"},
	LifeList:   {".Observation-species .Heading-main"},
	Submit:     {"#taxonomy .Species-common"},
}

// SelectorLocator locates candidates with CSS selectors per kind.
type SelectorLocator struct {
	groups map[Kind]string
}

// NewSelectorLocator validates selectors, overriding DefaultSelectors per kind. Selectors
// that do not compile are logged and dropped.
func NewSelectorLocator(overrides map[Kind][]string) *SelectorLocator {
	merged := make(map[Kind][]string, len(DefaultSelectors))
	for k, v := range DefaultSelectors {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	l := &SelectorLocator{groups: make(map[Kind]string, len(merged))}
	for kind, sels := range merged {
		var valid []string
		for _, raw := range sels {
			if _, err := cascadia.Parse(raw); err != nil {
				log.Warn("page: dropping selector", "kind", kind, "selector", raw, "err", err)
				continue
			}
			valid = append(valid, raw)
		}
		if len(valid) > 0 {
			l.groups[kind] = strings.Join(valid, ", ")
		}
	}
	return l
}

// Candidates returns the matching elements of doc in document order, each at most once.
// Unknown kinds have no candidates.
func (l *SelectorLocator) Candidates(doc *html.Node, kind Kind) []*html.Node {
	group, ok := l.groups[kind]
	if doc == nil || !ok {
		return nil
	}
	found := goquery.NewDocumentFromNode(doc).Find(group)
	if found.Length() == 0 {
		log.Debug("page: no candidates", "kind", kind)
	}
	return found.Nodes
}
