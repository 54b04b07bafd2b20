// Package diff partitions manifest files into fresh and stale sets.
package diff

import (
	"context"
	"sort"

	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/storage"
)

// Result partitions the keys of Manifest.Files. Both slices are sorted.
type Result struct {
	Fresh []string
	Stale []string
}

func (r Result) IsFresh(path string) bool {
	i := sort.SearchStrings(r.Fresh, path)
	return i < len(r.Fresh) && r.Fresh[i] == path
}

// Diff compares each declared hash to the stored one. A path is fresh only
// when a stored hash exists and equals the declared hash. Node paths absent
// from the manifest files are in neither set.
func Diff(ctx context.Context, m *manifest.Manifest, hashes storage.HashStore) (Result, error) {
	var r Result
	for path, entry := range m.Files {
		stored, ok, err := hashes.Get(ctx, path)
		if err != nil {
			return Result{}, err
		}
		if ok && stored == entry.Hash {
			r.Fresh = append(r.Fresh, path)
		} else {
			r.Stale = append(r.Stale, path)
		}
	}
	sort.Strings(r.Fresh)
	sort.Strings(r.Stale)
	return r, nil
}
