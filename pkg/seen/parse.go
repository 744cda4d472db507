package seen

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/pkg/classify"
)

// Selectors locate life-list rows and their name cells.
type Selectors struct {
	Row    string
	Common string
	Latin  string
}

// DefaultSelectors match the host's life-list page.
var DefaultSelectors = Selectors{
	Row:    ".Observation-species",
	Common: ".Heading-main",
	Latin:  ".Heading-sub--sci",
}

// ParseLifeList reads a life-list page.
func ParseLifeList(r io.Reader, sel Selectors) ([]Species, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse life list: %w", err)
	}
	return FromDocument(doc, sel), nil
}

// FromDocument extracts the life list of a parsed page in row order. Common names are
// cleaned of annotations; repeated names keep their first row.
func FromDocument(doc *html.Node, sel Selectors) []Species {
	if sel.Row == "" {
		sel = DefaultSelectors
	}
	rows := goquery.NewDocumentFromNode(doc).Find(sel.Row)
	if rows.Length() == 0 {
		log.Warn("seen: no life-list rows found", "selector", sel.Row)
		return nil
	}

	var list []Species
	rows.Each(func(_ int, row *goquery.Selection) {
		list = append(list, Species{
			CommonName: classify.CleanName(row.Find(sel.Common).First().Text()),
			LatinName:  strings.Join(strings.Fields(row.Find(sel.Latin).First().Text()), " "),
		})
	})
	return Dedupe(list)
}
