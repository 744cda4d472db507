package page

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// AttrJump flags the row the user jumped to.
const AttrJump = "data-birdserve-jump"

// ErrRowNotFound is returned when no row corresponds to the selected entry.
var ErrRowNotFound = errors.New("page: no row for entry")

// DOMJumper implements typeahead.Jumper over the rows of the current document.
type DOMJumper struct {
	doc  func() *html.Node
	spec RowSpec
}

// NewDOMJumper returns a jumper reading the current document from doc on every jump.
func NewDOMJumper(doc func() *html.Node, spec RowSpec) *DOMJumper {
	return &DOMJumper{doc: doc, spec: spec.orDefault()}
}

// JumpTo flags the row whose control id equals the entry code, falling back to the row
// with the entry's name. The previously flagged row is cleared.
func (j *DOMJumper) JumpTo(e typeahead.Entry) error {
	root := j.doc()
	if root == nil {
		return fmt.Errorf("%w: no document", ErrRowNotFound)
	}

	var target *html.Node
	for _, r := range Rows(root, j.spec) {
		if e.Code != "" && r.Code == e.Code {
			target = r.Node
			break
		}
		if target == nil && r.Name == e.CommonName {
			target = r.Node
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %q", ErrRowNotFound, e.CommonName)
	}

	goquery.NewDocumentFromNode(root).Find("[" + AttrJump + "]").RemoveAttr(AttrJump)
	goquery.NewDocumentFromNode(target).SetAttr(AttrJump, "true")
	return nil
}

// Jumped returns the currently flagged row, if any.
func Jumped(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(doc).Find("[" + AttrJump + "]").First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}
