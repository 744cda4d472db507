// Package seen keeps the user's life list: the species already recorded, rebuilt wholesale
// from the host's life-list page.
package seen

import (
	"context"
	"fmt"
)

// Species is one life-list row. CommonName is unique within a list.
type Species struct {
	CommonName string `msgpack:"common" json:"commonName"`
	LatinName  string `msgpack:"latin" json:"latinName"`
}

// Store persists the ordered life list.
type Store interface {
	List(ctx context.Context) ([]Species, error)
	// Replace swaps the whole list.
	Replace(ctx context.Context, list []Species) error
}

// Diff reports what a sync changed.
type Diff struct {
	Added   int `msgpack:"added" json:"added"`
	Removed int `msgpack:"removed" json:"removed"`
}

// Dedupe drops empty names and repeated common names, keeping the first occurrence.
func Dedupe(list []Species) []Species {
	out := make([]Species, 0, len(list))
	have := make(map[string]struct{}, len(list))
	for _, s := range list {
		if s.CommonName == "" {
			continue
		}
		if _, dup := have[s.CommonName]; dup {
			continue
		}
		have[s.CommonName] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Set returns the common names of list as a membership set.
func Set(list []Species) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		if s.CommonName != "" {
			set[s.CommonName] = struct{}{}
		}
	}
	return set
}

// Sync replaces the stored list with list and reports added and removed names against the
// previous content.
func Sync(ctx context.Context, store Store, list []Species) (Diff, error) {
	list = Dedupe(list)

	prev, err := store.List(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("read previous life list: %w", err)
	}
	before, after := Set(prev), Set(list)

	var d Diff
	for name := range after {
		if _, ok := before[name]; !ok {
			d.Added++
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			d.Removed++
		}
	}

	if err := store.Replace(ctx, list); err != nil {
		return Diff{}, fmt.Errorf("replace life list: %w", err)
	}
	return d, nil
}
