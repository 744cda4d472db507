/*
Package typeahead answers "jump to species" queries keyed by transliteration.

Every entry carries a phonetic key (full pinyin) and an initials key. Both keys are stored in
a Patricia trie so exact and prefix hits are found without scanning; substring hits need one
pass over the entries.

Results are ranked in three buckets, each keeping index order:

	exact     term equals a key
	prefix    term starts a key
	substring term occurs elsewhere in a key

Short terms (one or two characters) that hit more than five entries return the exact bucket
only, since anything else is noise against a vocabulary of thousands of names.
*/
package typeahead

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

const (
	// MaxResults caps every query.
	MaxResults = 50
	// ShortTermLen is the longest term subject to noise suppression.
	ShortTermLen = 2
	// NoiseThreshold is the hit count above which short terms keep exact hits only.
	NoiseThreshold = 5
)

// Entry is one species in the index.
type Entry struct {
	CommonName  string `msgpack:"n"`
	Code        string `msgpack:"c,omitempty"`
	PhoneticKey string `msgpack:"p"`
	InitialsKey string `msgpack:"i"`
	Latin       string `msgpack:"l,omitempty"`
}

// Visible is a candidate row currently shown on the page.
type Visible struct {
	Name string
	Code string
}

type bucket uint8

const (
	none bucket = iota
	exact
	prefix
	substring
)

// Index is an immutable, ranked key index.
type Index struct {
	entries []Entry
	byName  map[string]int
	trie    *patricia.Trie
}

// BuildGlobal indexes entries in the given order. Keys are normalized with NormalizeKey;
// entries without any key and repeated common names are dropped.
func BuildGlobal(entries []Entry) *Index {
	idx := &Index{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
		trie:    patricia.NewTrie(),
	}
	for _, e := range entries {
		idx.add(e)
	}
	log.Debugf("typeahead: indexed %d of %d entries", len(idx.entries), len(entries))
	return idx
}

// BuildVisible returns the subset of global whose names are visible rows, in row order.
// A non-empty row code replaces the entry's code.
func BuildVisible(global *Index, rows []Visible) *Index {
	idx := &Index{
		byName: make(map[string]int, len(rows)),
		trie:   patricia.NewTrie(),
	}
	if global == nil {
		return idx
	}
	for _, row := range rows {
		e, ok := global.Lookup(row.Name)
		if !ok {
			continue
		}
		if row.Code != "" {
			e.Code = row.Code
		}
		idx.add(e)
	}
	return idx
}

func (idx *Index) add(e Entry) {
	e.PhoneticKey = NormalizeKey(e.PhoneticKey)
	e.InitialsKey = NormalizeKey(e.InitialsKey)
	if e.CommonName == "" || (e.PhoneticKey == "" && e.InitialsKey == "") {
		return
	}
	if _, dup := idx.byName[e.CommonName]; dup {
		return
	}

	pos := len(idx.entries)
	idx.entries = append(idx.entries, e)
	idx.byName[e.CommonName] = pos
	idx.insertKey(e.PhoneticKey, pos)
	if e.InitialsKey != e.PhoneticKey {
		idx.insertKey(e.InitialsKey, pos)
	}
}

func (idx *Index) insertKey(key string, pos int) {
	if key == "" {
		return
	}
	p := patricia.Prefix(key)
	if item := idx.trie.Get(p); item != nil {
		idx.trie.Set(p, append(item.([]int), pos))
		return
	}
	idx.trie.Insert(p, []int{pos})
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Lookup returns the entry for a common name.
func (idx *Index) Lookup(name string) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}
	pos, ok := idx.byName[name]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[pos], true
}

// Query returns ranked entries for term, at most MaxResults. An empty term returns nothing.
func (idx *Index) Query(term string) []Entry {
	term = NormalizeKey(term)
	if idx == nil || term == "" || len(idx.entries) == 0 {
		return nil
	}

	buckets := make([]bucket, len(idx.entries))
	if item := idx.trie.Get(patricia.Prefix(term)); item != nil {
		for _, pos := range item.([]int) {
			buckets[pos] = exact
		}
	}

	err := idx.trie.VisitSubtree(patricia.Prefix(term), func(_ patricia.Prefix, item patricia.Item) error {
		for _, pos := range item.([]int) {
			if buckets[pos] == none {
				buckets[pos] = prefix
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("typeahead: visiting trie subtree for %q: %v", term, err)
	}

	for pos, e := range idx.entries {
		if buckets[pos] != none {
			continue
		}
		if strings.Contains(e.PhoneticKey, term) || strings.Contains(e.InitialsKey, term) {
			buckets[pos] = substring
		}
	}

	var exacts, prefixes, substrings []Entry
	for pos, b := range buckets {
		switch b {
		case exact:
			exacts = append(exacts, idx.entries[pos])
		case prefix:
			prefixes = append(prefixes, idx.entries[pos])
		case substring:
			substrings = append(substrings, idx.entries[pos])
		}
	}

	total := len(exacts) + len(prefixes) + len(substrings)
	if utf8.RuneCountInString(term) <= ShortTermLen && total > NoiseThreshold {
		return exacts
	}

	out := make([]Entry, 0, min(total, MaxResults))
	out = append(out, exacts...)
	out = append(out, prefixes...)
	out = append(out, substrings...)
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}
