package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/birdserve/internal/utils"
)

// snapshotVersion changes whenever the Bundle layout does.
const snapshotVersion = 1

type snapshot struct {
	Version     int    `msgpack:"v"`
	Fingerprint string `msgpack:"fp"`
	Bundle      Bundle `msgpack:"b"`
}

// Cache stores a decoded Bundle as a msgpack snapshot keyed by the source fingerprint.
type Cache struct {
	Path string
}

// Get returns the cached bundle when its fingerprint matches.
func (c *Cache) Get(fingerprint string) (*Bundle, bool) {
	if c == nil || c.Path == "" || fingerprint == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("dataset: reading cache", "path", c.Path, "err", err)
		}
		return nil, false
	}
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		log.Warn("dataset: discarding corrupt cache", "path", c.Path, "err", err)
		return nil, false
	}
	if snap.Version != snapshotVersion || snap.Fingerprint != fingerprint {
		log.Debug("dataset: cache is stale", "path", c.Path)
		return nil, false
	}
	b := snap.Bundle
	b.Fingerprint = fingerprint
	return &b, true
}

// Put replaces the snapshot with b.
func (c *Cache) Put(fingerprint string, b *Bundle) error {
	if c == nil || c.Path == "" || fingerprint == "" || b == nil {
		return nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(snapshot{Version: snapshotVersion, Fingerprint: fingerprint, Bundle: *b}); err != nil {
		return fmt.Errorf("encode dataset snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(c.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write dataset snapshot: %w", err)
	}
	return nil
}
