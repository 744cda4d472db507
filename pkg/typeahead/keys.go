package typeahead

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// chains hold per-use buffers, so each caller takes its own
var stripMarksPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

func stripMarks(s string) (string, error) {
	t := stripMarksPool.Get().(transform.Transformer)
	defer stripMarksPool.Put(t)
	out, _, err := transform.String(t, s)
	return out, err
}

// NormalizeKey folds a romanized key to the form stored in the index: lowercase, tone
// marks stripped, whitespace and apostrophes dropped ("Hè Ér" -> "heer").
func NormalizeKey(s string) string {
	folded, err := stripMarks(strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' || r == '’' {
			return -1
		}
		return r
	}, folded)
}

// DeriveInitials returns the first letter of each whitespace-separated syllable,
// lowercased ("bai tou he" -> "bth").
func DeriveInitials(pinyin string) string {
	folded, err := stripMarks(pinyin)
	if err != nil {
		folded = pinyin
	}
	var b strings.Builder
	for _, syllable := range strings.Fields(folded) {
		for _, r := range syllable {
			b.WriteRune(unicode.ToLower(r))
			break
		}
	}
	return b.String()
}
