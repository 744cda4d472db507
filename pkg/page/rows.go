package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/pkg/classify"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// RowSpec locates the candidate rows of the checklist entry page.
type RowSpec struct {
	// Row selects one row per species.
	Row string
	// Name selects the name cell inside a row.
	Name string
	// Control selects the row's count input; its id becomes the row code.
	Control string
}

// DefaultRowSpec matches the host's checklist entry table.
var DefaultRowSpec = RowSpec{
	Row:     "#taxonomy .Species",
	Name:    ".Species-common",
	Control: "input",
}

func (s RowSpec) orDefault() RowSpec {
	if s.Row == "" {
		s.Row = DefaultRowSpec.Row
	}
	if s.Name == "" {
		s.Name = DefaultRowSpec.Name
	}
	if s.Control == "" {
		s.Control = DefaultRowSpec.Control
	}
	return s
}

// Row is a candidate row currently on the page.
type Row struct {
	Name string
	Code string
	Node *html.Node
}

// Rows returns the named rows of doc in document order.
func Rows(doc *html.Node, spec RowSpec) []Row {
	if doc == nil {
		return nil
	}
	spec = spec.orDefault()

	var rows []Row
	goquery.NewDocumentFromNode(doc).Find(spec.Row).Each(func(_ int, row *goquery.Selection) {
		name := classify.CleanName(row.Find(spec.Name).First().Text())
		if name == "" {
			return
		}
		control := row.Find(spec.Control).First()
		code := control.AttrOr("id", "")
		if code == "" {
			code = control.AttrOr("name", "")
		}
		rows = append(rows, Row{Name: name, Code: strings.TrimSpace(code), Node: row.Nodes[0]})
	})
	return rows
}

// Visible converts rows to typeahead visibility records.
func Visible(rows []Row) []typeahead.Visible {
	out := make([]typeahead.Visible, len(rows))
	for i, r := range rows {
		out[i] = typeahead.Visible{Name: r.Name, Code: r.Code}
	}
	return out
}
