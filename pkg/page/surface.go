package page

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// Attributes written by ListSurface.
const (
	AttrOpen       = "data-birdserve-open"
	AttrSuggestion = "data-birdserve-suggestion"
)

// DefaultContainer is the host's suggestion list.
const DefaultContainer = "#birdserve-suggestions"

// ListSurface implements typeahead.Surface by rendering list items into a container of the
// current document.
type ListSurface struct {
	doc       func() *html.Node
	container string
}

// NewListSurface returns a surface rendering into the first match of container.
func NewListSurface(doc func() *html.Node, container string) *ListSurface {
	if container == "" {
		container = DefaultContainer
	}
	return &ListSurface{doc: doc, container: container}
}

func (s *ListSurface) find() *goquery.Selection {
	root := s.doc()
	if root == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(root).Find(s.container).First()
	if sel.Length() == 0 {
		log.Warn("page: suggestion container missing", "selector", s.container)
		return nil
	}
	return sel
}

func (s *ListSurface) Open() {
	if sel := s.find(); sel != nil {
		sel.SetAttr(AttrOpen, "true")
	}
}

func (s *ListSurface) Close() {
	if sel := s.find(); sel != nil {
		sel.RemoveAttr(AttrOpen)
	}
}

// Render replaces the rendered suggestions with one <li> per entry.
func (s *ListSurface) Render(entries []typeahead.Entry) {
	sel := s.find()
	if sel == nil {
		return
	}
	sel.Find("[" + AttrSuggestion + "]").Remove()

	items := make([]*html.Node, 0, len(entries))
	for i, e := range entries {
		li := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Li,
			Data:     "li",
			Attr: []html.Attribute{
				{Key: AttrSuggestion, Val: strconv.Itoa(i)},
				{Key: "data-code", Val: e.Code},
			},
		}
		li.AppendChild(&html.Node{Type: html.TextNode, Data: e.CommonName})
		items = append(items, li)
	}
	sel.AppendNodes(items...)
}

// Suggestions returns the rendered suggestion texts of doc's container, in order.
func Suggestions(doc *html.Node, container string) []string {
	if doc == nil {
		return nil
	}
	if container == "" {
		container = DefaultContainer
	}
	var out []string
	goquery.NewDocumentFromNode(doc).Find(container).First().Find("[" + AttrSuggestion + "]").Each(func(_ int, li *goquery.Selection) {
		out = append(out, li.Text())
	})
	return out
}
