package classify

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/bastiangx/birdserve/pkg/mark"
)

// Annotation names read by the presentation layer.
const (
	AttrUnseen    = "data-birdserve-unseen"
	AttrEndemic   = "data-birdserve-endemic"
	HighlightProp = "--birdserve-highlight"
	Star          = "*"
)

// Verdict is the classification of one clean name.
type Verdict int

const (
	// Skip is an excluded or empty label.
	Skip Verdict = iota
	// Seen is on the user's life list; no annotation.
	Seen
	// CommonUnseen is not on the life list and not endemic.
	CommonUnseen
	// EndemicUnseen is not on the life list and endemic to Regions.
	EndemicUnseen
)

func (v Verdict) String() string {
	switch v {
	case Seen:
		return "seen"
	case CommonUnseen:
		return "common-unseen"
	case EndemicUnseen:
		return "endemic-unseen"
	default:
		return "skip"
	}
}

// Decision is the pure result of classifying a clean name.
type Decision struct {
	Verdict   Verdict
	CleanName string
	Regions   []string
}

// Decide classifies a clean name against the seen set and the endemic map.
func Decide(clean string, seen map[string]struct{}, endemic map[string][]string) Decision {
	d := Decision{CleanName: clean}
	if clean == "" || Excluded(clean) {
		return d
	}
	if _, ok := seen[clean]; ok {
		d.Verdict = Seen
		return d
	}
	if regions := nonEmpty(endemic[clean]); len(regions) > 0 {
		d.Verdict = EndemicUnseen
		d.Regions = regions
		return d
	}
	d.Verdict = CommonUnseen
	return d
}

func nonEmpty(codes []string) []string {
	var out []string
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Options selects the highlight colors.
type Options struct {
	CommonColor  string
	EndemicColor string
}

// Outcome is the decision taken for one element.
type Outcome struct {
	Node     *html.Node
	Decision Decision
}

// Classifier applies decisions to page elements, at most once per element.
type Classifier struct {
	seen    map[string]struct{}
	endemic map[string][]string
	marks   *mark.Set
	opts    Options
}

// New returns a Classifier. marks must be the unseen namespace of the current page.
func New(seen map[string]struct{}, endemic map[string][]string, marks *mark.Set, opts Options) *Classifier {
	if seen == nil {
		seen = map[string]struct{}{}
	}
	if endemic == nil {
		endemic = map[string][]string{}
	}
	return &Classifier{seen: seen, endemic: endemic, marks: marks, opts: opts}
}

// Classify decides and annotates each element not yet marked. Elements are marked
// whatever the decision, so overlapping candidate sets are safe. Only newly decided
// elements are reported.
func (c *Classifier) Classify(elements []*html.Node) []Outcome {
	var out []Outcome
	for _, el := range elements {
		if el == nil || el.Type != html.ElementNode || c.marks.IsMarked(el) {
			continue
		}
		sel := goquery.NewDocumentFromNode(el).Selection
		d := Decide(CleanName(sel.Text()), c.seen, c.endemic)

		switch d.Verdict {
		case CommonUnseen:
			c.annotate(sel, c.opts.CommonColor)
		case EndemicUnseen:
			c.annotate(sel, c.opts.EndemicColor)
			codes := strings.Join(d.Regions, ", ")
			sel.SetAttr(AttrEndemic, codes)
			sel.SetAttr("title", extendTitle(sel.AttrOr("title", ""), "Endemic: "+codes))
		}

		c.marks.Mark(el)
		out = append(out, Outcome{Node: el, Decision: d})
		log.Debug("classified", "name", d.CleanName, "verdict", d.Verdict)
	}
	return out
}

func (c *Classifier) annotate(sel *goquery.Selection, color string) {
	sel.SetAttr(AttrUnseen, "true")
	if color != "" {
		sel.SetAttr("style", setStyleProperty(sel.AttrOr("style", ""), HighlightProp, color))
	}
	if !strings.Contains(sel.Text(), Star) {
		sel.Nodes[0].AppendChild(&html.Node{Type: html.TextNode, Data: Star})
	}
}

// extendTitle appends note to a tooltip unless it is already there.
func extendTitle(title, note string) string {
	if strings.Contains(title, note) {
		return title
	}
	if strings.TrimSpace(title) == "" {
		return note
	}
	return title + " | " + note
}

// setStyleProperty sets one declaration in an inline style, replacing a previous value.
func setStyleProperty(style, prop, value string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(name) == prop {
			continue
		}
		kept = append(kept, decl)
	}
	kept = append(kept, prop+": "+value)
	return strings.Join(kept, "; ")
}
