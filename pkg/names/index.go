/*
Package names builds the translation index used to rewrite English bird names in page text.

An Index is compiled once from a flat source -> target mapping. Entries are ordered by
descending source length so that, at any position, the longest vocabulary entry wins:

	idx := names.FromMapping(map[string]string{
		"Oriental Magpie":       "Z",
		"Oriental Magpie-Robin": "Y",
		"Magpie-Robin":          "X",
	})
	out, n := idx.Replace("Oriental Magpie-Robin was seen") // "Y was seen", 1

Matching is exact, case-sensitive and word-boundary aligned. A single Aho-Corasick automaton
scans the text once for every vocabulary entry; leftmost-longest selection is applied on top
of the overlapping hits.
*/
package names

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coregx/ahocorasick"
)

// NameEntry is one source -> target translation pair.
type NameEntry struct {
	SourceName string `msgpack:"s"`
	TargetName string `msgpack:"t"`
}

// Match is a matched span in the scanned text, in byte offsets.
type Match struct {
	Start int
	End   int
	Entry NameEntry
}

// Index is an immutable matcher over a closed vocabulary.
type Index struct {
	entries []NameEntry
	lookup  map[string]string
	ac      *ahocorasick.Automaton
}

// FromMapping builds an Index from a plain map. Keys are sorted first so equal-length
// entries keep a deterministic order.
func FromMapping(mapping map[string]string) *Index {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]NameEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, NameEntry{SourceName: k, TargetName: mapping[k]})
	}
	return Build(entries)
}

// Build compiles entries into an Index. Empty and duplicate source names are dropped
// (first one wins). Entries are stable-sorted by source length, longest first.
// An empty input yields a valid index that matches nothing.
func Build(entries []NameEntry) *Index {
	ordered := make([]NameEntry, 0, len(entries))
	lookup := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.SourceName == "" {
			continue
		}
		if _, dup := lookup[e.SourceName]; dup {
			continue
		}
		lookup[e.SourceName] = e.TargetName
		ordered = append(ordered, e)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].SourceName) > len(ordered[j].SourceName)
	})

	idx := &Index{entries: ordered, lookup: lookup}
	if len(ordered) == 0 {
		return idx
	}

	patterns := make([]string, len(ordered))
	for i, e := range ordered {
		patterns[i] = e.SourceName
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetPrefilter(true).
		Build()
	if err != nil {
		log.Warnf("names: failed to compile %d patterns, index left empty: %v", len(patterns), err)
		return &Index{lookup: map[string]string{}}
	}
	idx.ac = automaton

	log.Debugf("names: compiled index with %d entries", len(ordered))
	return idx
}

// Len returns the number of vocabulary entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Entries returns the entries in match-priority order.
func (idx *Index) Entries() []NameEntry {
	if idx == nil {
		return nil
	}
	out := make([]NameEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Lookup returns the translation of an exact source name.
func (idx *Index) Lookup(source string) (string, bool) {
	if idx == nil {
		return "", false
	}
	target, ok := idx.lookup[source]
	return target, ok
}

// Match returns all non-overlapping, word-aligned occurrences of vocabulary entries in
// text, left to right. At every start position the longest entry wins.
func (idx *Index) Match(text string) []Match {
	if idx == nil || idx.ac == nil || text == "" {
		return nil
	}

	hits := idx.ac.FindAllOverlapping([]byte(text))
	if len(hits) == 0 {
		return nil
	}

	// group by start, longest first within a start
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Start != hits[j].Start {
			return hits[i].Start < hits[j].Start
		}
		return hits[i].End-hits[i].Start > hits[j].End-hits[j].Start
	})

	var out []Match
	pos := 0
	for i := 0; i < len(hits); {
		start := hits[i].Start
		j := i
		for j < len(hits) && hits[j].Start == start {
			j++
		}

		if start >= pos && boundaryBefore(text, start) {
			for _, h := range hits[i:j] {
				if h.PatternID < 0 || h.PatternID >= len(idx.entries) {
					continue
				}
				if !boundaryAfter(text, h.End) {
					continue
				}
				out = append(out, Match{Start: h.Start, End: h.End, Entry: idx.entries[h.PatternID]})
				pos = h.End
				break
			}
		}
		i = j
	}
	return out
}

// Replace substitutes every match with its target name and returns the new text and the
// number of replacements. Text between matches is copied untouched.
func (idx *Index) Replace(text string) (string, int) {
	matches := idx.Match(text)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*8)
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(m.Entry.TargetName)
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String(), len(matches)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundaryBefore reports whether a match may start at pos: either side of pos must not
// be a word rune.
func boundaryBefore(text string, pos int) bool {
	if pos <= 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:pos])
	next, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(prev) || !isWordRune(next)
}

// boundaryAfter reports whether a match may end at pos.
func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:pos])
	next, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(prev) || !isWordRune(next)
}
