package rewrite

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/pkg/mark"
	"github.com/bastiangx/birdserve/pkg/names"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatalf("render html: %v", err)
	}
	return buf.String()
}

var birdMap = map[string]string{
	"Emu":                   "Emu(鸸鹋)",
	"Oriental Magpie-Robin": "Oriental Magpie-Robin(鹊鸲)",
	"Oriental Magpie":       "Oriental Magpie(东方喜鹊)",
	"Magpie-Robin":          "Magpie-Robin(鹊鸲属)",
}

func TestSubtreeRewritesTextNodes(t *testing.T) {
	doc := parse(t, `<div id="list">
		<span class="a">Emu</span>
		<span class="b">Oriental Magpie-Robin was seen</span>
		<span class="c">Nothing here</span>
		<script>var s = "Emu";</script>
	</div>`)
	idx := names.FromMapping(birdMap)
	marks := mark.New(mark.Rewrite)

	if n := Subtree(doc, idx, marks); n != 2 {
		t.Errorf("Subtree() changed %d nodes, want 2", n)
	}

	q := goquery.NewDocumentFromNode(doc)
	if got := q.Find(".a").Text(); got != "Emu(鸸鹋)" {
		t.Errorf(".a text = %q", got)
	}
	if got := q.Find(".b").Text(); got != "Oriental Magpie-Robin(鹊鸲) was seen" {
		t.Errorf(".b text = %q", got)
	}
	if got := q.Find(".c").Text(); got != "Nothing here" {
		t.Errorf(".c text = %q", got)
	}
	if got := q.Find("script").Text(); got != `var s = "Emu";` {
		t.Errorf("script text was rewritten: %q", got)
	}
	if !marks.IsMarked(q.Find(".a").Get(0)) {
		t.Error("owner of a rewritten node is not marked")
	}
	if marks.IsMarked(q.Find(".c").Get(0)) {
		t.Error("owner of an untouched node is marked")
	}
}

func TestSubtreeIsIdempotent(t *testing.T) {
	doc := parse(t, `<ul><li>Emu</li><li>an Emu and an Emu</li></ul>`)
	idx := names.FromMapping(birdMap)
	marks := mark.New(mark.Rewrite)

	first := Subtree(doc, idx, marks)
	afterFirst := render(t, doc)
	second := Subtree(doc, idx, marks)
	afterSecond := render(t, doc)

	if first != 2 {
		t.Errorf("first pass changed %d nodes, want 2", first)
	}
	if second != 0 {
		t.Errorf("second pass changed %d nodes, want 0", second)
	}
	if afterFirst != afterSecond {
		t.Errorf("output changed on second pass:\n%s\n%s", afterFirst, afterSecond)
	}
	if strings.Contains(afterSecond, "(鸸鹋)(鸸鹋)") {
		t.Error("translation was re-matched against itself")
	}
}

func TestMarkedOwnerSkipsLaterText(t *testing.T) {
	doc := parse(t, `<p id="p">Emu</p>`)
	idx := names.FromMapping(birdMap)
	marks := mark.New(mark.Rewrite)
	Subtree(doc, idx, marks)

	p := goquery.NewDocumentFromNode(doc).Find("#p").Get(0)
	p.AppendChild(&html.Node{Type: html.TextNode, Data: " and another Emu"})

	if n := Subtree(doc, idx, marks); n != 0 {
		t.Errorf("Subtree() changed %d nodes under a marked owner", n)
	}
	if got := goquery.NewDocumentFromNode(p).Text(); got != "Emu(鸸鹋) and another Emu" {
		t.Errorf("text = %q", got)
	}
}

func TestSubtreeNoops(t *testing.T) {
	marks := mark.New(mark.Rewrite)
	if n := Subtree(nil, names.FromMapping(birdMap), marks); n != 0 {
		t.Errorf("nil root changed %d nodes", n)
	}
	doc := parse(t, `<p>Emu</p>`)
	if n := Subtree(doc, names.FromMapping(nil), marks); n != 0 {
		t.Errorf("empty index changed %d nodes", n)
	}
	if n := Subtree(doc, nil, marks); n != 0 {
		t.Errorf("nil index changed %d nodes", n)
	}
}
