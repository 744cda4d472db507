package typeahead

import (
	"errors"
	"fmt"
	"strings"
)

// Default reserved prefixes of the input control.
const (
	DefaultLocalPrefix  = "/"
	DefaultGlobalPrefix = "//"
)

// ErrNoSelection is returned by Select for an index outside the rendered results.
var ErrNoSelection = errors.New("typeahead: no such result")

// Surface is the host's suggestion list.
type Surface interface {
	Open()
	Close()
	Render(entries []Entry)
}

// Jumper moves the page to the row of an entry.
type Jumper interface {
	JumpTo(e Entry) error
}

// Indexes supplies the indexes queried by the controller. Visible may change between
// keystrokes as the page's candidate rows change.
type Indexes interface {
	Global() *Index
	Visible() *Index
}

// Controller captures the input control while its text starts with a reserved prefix.
type Controller struct {
	localPrefix  string
	globalPrefix string
	indexes      Indexes
	surface      Surface
	jumper       Jumper

	text    string
	results []Entry
	active  bool
}

// NewController returns a Controller. Empty prefixes fall back to the defaults.
func NewController(indexes Indexes, surface Surface, jumper Jumper, localPrefix, globalPrefix string) *Controller {
	if localPrefix == "" {
		localPrefix = DefaultLocalPrefix
	}
	if globalPrefix == "" {
		globalPrefix = DefaultGlobalPrefix
	}
	return &Controller{
		localPrefix:  localPrefix,
		globalPrefix: globalPrefix,
		indexes:      indexes,
		surface:      surface,
		jumper:       jumper,
	}
}

// Keystroke handles the control's current text. It returns true when the controller
// claimed the keystroke, in which case the host's native suggestions must be suppressed.
func (c *Controller) Keystroke(text string) bool {
	c.text = text

	idx, term, ok := c.route(text)
	if !ok {
		c.release()
		return false
	}

	c.results = idx.Query(term)
	c.active = true
	c.surface.Open()
	c.surface.Render(c.results)
	return true
}

// route picks the index for text. The longer prefix is tried first so a global prefix
// that extends the local one is recognized.
func (c *Controller) route(text string) (*Index, string, bool) {
	first, second := c.globalPrefix, c.localPrefix
	firstGlobal := true
	if len(second) > len(first) {
		first, second = second, first
		firstGlobal = false
	}

	switch {
	case strings.HasPrefix(text, first):
		return c.pick(firstGlobal), strings.TrimPrefix(text, first), true
	case strings.HasPrefix(text, second):
		return c.pick(!firstGlobal), strings.TrimPrefix(text, second), true
	}
	return nil, "", false
}

func (c *Controller) pick(global bool) *Index {
	if c.indexes == nil {
		return nil
	}
	if global {
		return c.indexes.Global()
	}
	return c.indexes.Visible()
}

// release hands the control back to the host and clears rendered results.
func (c *Controller) release() {
	if !c.active && len(c.results) == 0 {
		return
	}
	c.results = nil
	c.active = false
	c.surface.Render(nil)
	c.surface.Close()
}

// Select jumps to the i-th rendered result, clears the control and closes the surface.
func (c *Controller) Select(i int) (Entry, error) {
	if i < 0 || i >= len(c.results) {
		return Entry{}, fmt.Errorf("%w: %d of %d", ErrNoSelection, i, len(c.results))
	}
	e := c.results[i]

	var err error
	if c.jumper != nil {
		if jerr := c.jumper.JumpTo(e); jerr != nil {
			err = fmt.Errorf("jump to %q: %w", e.CommonName, jerr)
		}
	}

	c.text = ""
	c.release()
	return e, err
}

// Text returns the control's text as last seen, empty after a selection.
func (c *Controller) Text() string { return c.text }

// Results returns the rendered results.
func (c *Controller) Results() []Entry { return c.results }

// Active reports whether the controller currently owns the control.
func (c *Controller) Active() bool { return c.active }
