// Package hashstore keeps the last verified content hash per manifest path.
package hashstore

import (
	"context"
	"strings"

	"github.com/aweris/assetsync/internal/storage"
)

const keyPrefix = "hash/"

var _ storage.HashStore = (*Store)(nil)

// Store is a HashStore over a flat StringStore. The same StringStore may be
// shared with a kvblob.Store; keys are namespaced.
type Store struct {
	kv storage.StringStore
}

func New(kv storage.StringStore) *Store {
	return &Store{kv: kv}
}

func (s *Store) Get(_ context.Context, path string) (string, bool, error) {
	v, ok, err := s.kv.Get(keyPrefix + path)
	if err != nil {
		return "", false, &storage.StoreError{Op: "get hash", Path: path, Err: err}
	}
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, path, hash string) error {
	if err := s.kv.Set(keyPrefix+path, hash); err != nil {
		return &storage.StoreError{Op: "set hash", Path: path, Err: err}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	if err := s.kv.Delete(keyPrefix + path); err != nil {
		return &storage.StoreError{Op: "delete hash", Path: path, Err: err}
	}
	return nil
}

func (s *Store) All(_ context.Context) (map[string]string, error) {
	keys, err := s.kv.Keys(keyPrefix)
	if err != nil {
		return nil, &storage.StoreError{Op: "list hashes", Err: err}
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := s.kv.Get(k)
		if err != nil {
			return nil, &storage.StoreError{Op: "get hash", Path: strings.TrimPrefix(k, keyPrefix), Err: err}
		}
		if ok {
			out[strings.TrimPrefix(k, keyPrefix)] = v
		}
	}
	return out, nil
}
