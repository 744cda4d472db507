// Package rewrite replaces vocabulary names in the text nodes of a page subtree.
package rewrite

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bastiangx/birdserve/pkg/mark"
	"github.com/bastiangx/birdserve/pkg/names"
)

// skipped elements never hold user-visible prose.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Textarea: true,
	atom.Template: true,
}

// Subtree rewrites every text node under root whose owning element is not yet marked in
// marks. An owner is marked once at least one of its text nodes changed and is skipped on
// every later call, including its sibling text nodes. Returns the number of text nodes
// changed.
func Subtree(root *html.Node, idx *names.Index, marks *mark.Set) int {
	if root == nil || idx.Len() == 0 {
		return 0
	}

	changed := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if rewriteText(n, idx, marks) {
				changed++
			}
			return
		case html.CommentNode, html.DoctypeNode, html.RawNode:
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return changed
}

func rewriteText(n *html.Node, idx *names.Index, marks *mark.Set) bool {
	owner := n.Parent
	if owner == nil {
		owner = n
	}
	if marks.IsMarked(owner) {
		return false
	}

	text, count := idx.Replace(n.Data)
	if count == 0 {
		return false
	}
	n.Data = text
	marks.Mark(owner)
	return true
}
