package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/birdserve/pkg/names"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// ErrMalformed is returned when a payload is not a JSON object.
var ErrMalformed = errors.New("dataset: malformed payload")

// eachField walks a top-level JSON object in document order, handing each value to fn.
func eachField(r io.Reader, fn func(key string, raw json.RawMessage)) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrMalformed, tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}
		fn(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeNames reads the name mapping, an object of source name to target name, keeping
// the file's order. Entries whose value is not a string are skipped.
func DecodeNames(r io.Reader) ([]names.NameEntry, error) {
	var out []names.NameEntry
	skipped := 0
	err := eachField(r, func(key string, raw json.RawMessage) {
		var target string
		if json.Unmarshal(raw, &target) != nil || key == "" || target == "" {
			skipped++
			return
		}
		out = append(out, names.NameEntry{SourceName: key, TargetName: target})
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn("dataset: skipped name entries", "key", NamesKey, "count", skipped)
	}
	return out, nil
}

// DecodeEndemic reads region codes per common name. A value may be a single code or a
// list of codes; empty codes are dropped.
func DecodeEndemic(r io.Reader) (map[string][]string, error) {
	out := make(map[string][]string)
	skipped := 0
	err := eachField(r, func(key string, raw json.RawMessage) {
		codes, ok := regionCodes(raw)
		if !ok || key == "" {
			skipped++
			return
		}
		if len(codes) > 0 {
			out[key] = codes
		}
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn("dataset: skipped endemic entries", "key", EndemicKey, "count", skipped)
	}
	return out, nil
}

func regionCodes(raw json.RawMessage) ([]string, bool) {
	var one string
	if json.Unmarshal(raw, &one) == nil {
		return nonEmpty([]string{one}), true
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return nonEmpty(many), true
	}
	return nil, false
}

func nonEmpty(codes []string) []string {
	out := codes[:0]
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

type typeaheadRecord struct {
	Pinyin   string `json:"pinyin"`
	Initials string `json:"initials"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Latin    string `json:"latin"`
}

// DecodeTypeahead reads the transliteration mapping, an object keyed by common name.
// Missing initials are derived from whitespace-separated pinyin syllables; entries with
// no key at all are dropped.
func DecodeTypeahead(r io.Reader) ([]typeahead.Entry, error) {
	var out []typeahead.Entry
	skipped, keyless := 0, 0
	err := eachField(r, func(key string, raw json.RawMessage) {
		var rec typeaheadRecord
		if json.Unmarshal(raw, &rec) != nil {
			skipped++
			return
		}
		name := rec.Name
		if name == "" {
			name = key
		}
		initials := rec.Initials
		if initials == "" {
			initials = typeahead.DeriveInitials(rec.Pinyin)
		}
		if name == "" || (strings.TrimSpace(rec.Pinyin) == "" && strings.TrimSpace(initials) == "") {
			keyless++
			return
		}
		out = append(out, typeahead.Entry{
			CommonName:  name,
			Code:        rec.Code,
			PhoneticKey: rec.Pinyin,
			InitialsKey: initials,
			Latin:       rec.Latin,
		})
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 || keyless > 0 {
		log.Warn("dataset: dropped typeahead entries", "key", TypeaheadKey, "malformed", skipped, "keyless", keyless)
	}
	return out, nil
}
