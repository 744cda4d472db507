// Package dataset loads the three name datasets the page passes run on and validates
// them into typed records.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/birdserve/pkg/names"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

// Bundle is one consistent set of decoded datasets.
type Bundle struct {
	Names     []names.NameEntry   `msgpack:"names"`
	Endemic   map[string][]string `msgpack:"endemic"`
	Typeahead []typeahead.Entry   `msgpack:"typeahead"`

	Fingerprint string `msgpack:"-"`
}

// Load reads and decodes every dataset of src. When src is a Fingerprinter and cache is
// set, an unchanged source is served from the cache. Only a missing or unreadable required
// dataset fails; optional ones and malformed payloads degrade to empty with a warning.
func Load(ctx context.Context, src Source, cache *Cache) (*Bundle, error) {
	start := time.Now()

	var fingerprint string
	if fp, ok := src.(Fingerprinter); ok && cache != nil {
		var err error
		if fingerprint, err = fp.Fingerprint(ctx); err != nil {
			log.Warn("dataset: fingerprint failed, skipping cache", "err", err)
			fingerprint = ""
		}
		if b, ok := cache.Get(fingerprint); ok {
			log.Debug("dataset: served from cache", "names", len(b.Names), "took", time.Since(start))
			return b, nil
		}
	}

	b := &Bundle{Endemic: map[string][]string{}, Fingerprint: fingerprint}

	if err := read(ctx, src, NamesKey, func(r io.Reader) (err error) {
		b.Names, err = DecodeNames(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(ctx, src, EndemicKey, func(r io.Reader) error {
		m, err := DecodeEndemic(r)
		if err == nil {
			b.Endemic = m
		}
		return err
	}); err != nil {
		return nil, err
	}
	if err := read(ctx, src, TypeaheadKey, func(r io.Reader) (err error) {
		b.Typeahead, err = DecodeTypeahead(r)
		return err
	}); err != nil {
		return nil, err
	}

	if err := cache.Put(fingerprint, b); err != nil {
		log.Warn("dataset: caching failed", "err", err)
	}
	log.Debug("dataset: loaded", "names", len(b.Names), "endemic", len(b.Endemic),
		"typeahead", len(b.Typeahead), "took", time.Since(start))
	return b, nil
}

func read(ctx context.Context, src Source, key Key, decode func(io.Reader) error) error {
	info, _ := Info(key)

	rc, err := src.Open(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if info.Required {
			return fmt.Errorf("load %s: %w", key, err)
		}
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("dataset: optional dataset missing", "key", key)
		} else {
			log.Warn("dataset: optional dataset unreadable", "key", key, "err", err)
		}
		return nil
	}
	defer rc.Close()

	if err := decode(rc); err != nil {
		log.Warn("dataset: malformed payload, using empty mapping", "key", key, "err", err)
	}
	return nil
}
