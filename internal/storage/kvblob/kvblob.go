// Package kvblob stores blobs as compressed strings in a flat key-value store,
// the way a browser-style local storage backend would hold them.
package kvblob

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aweris/assetsync/internal/compression"
	"github.com/aweris/assetsync/internal/storage"
)

const (
	blobPrefix = "blob/"
	typePrefix = "type/"
)

var _ storage.BlobStore = (*Store)(nil)

type Store struct {
	kv         storage.StringStore
	compressor *compression.Compressor
}

func New(kv storage.StringStore, compressor *compression.Compressor) *Store {
	return &Store{kv: kv, compressor: compressor}
}

func (s *Store) Has(_ context.Context, path string) (bool, error) {
	_, ok, err := s.kv.Get(blobPrefix + path)
	if err != nil {
		return false, &storage.StoreError{Op: "stat", Path: path, Err: err}
	}
	return ok, nil
}

func (s *Store) Read(_ context.Context, path string) (*storage.Blob, error) {
	encoded, ok, err := s.kv.Get(blobPrefix + path)
	if err != nil {
		return nil, &storage.StoreError{Op: "read", Path: path, Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}

	packed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &storage.StoreError{Op: "decode", Path: path, Err: err}
	}
	data, err := s.compressor.Decompress(packed)
	if err != nil {
		return nil, &storage.StoreError{Op: "decompress", Path: path, Err: err}
	}

	contentType, _, err := s.kv.Get(typePrefix + path)
	if err != nil {
		return nil, &storage.StoreError{Op: "read", Path: path, Err: err}
	}
	return &storage.Blob{Data: data, ContentType: contentType}, nil
}

func (s *Store) Write(_ context.Context, path string, data []byte, contentType string) error {
	encoded := base64.StdEncoding.EncodeToString(s.compressor.Compress(data))
	// Content type first: a blob key is only visible once its type is in place.
	if err := s.kv.Set(typePrefix+path, contentType); err != nil {
		return &storage.StoreError{Op: "write", Path: path, Err: err}
	}
	if err := s.kv.Set(blobPrefix+path, encoded); err != nil {
		return &storage.StoreError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	if err := s.kv.Delete(blobPrefix + path); err != nil {
		return &storage.StoreError{Op: "remove", Path: path, Err: err}
	}
	if err := s.kv.Delete(typePrefix + path); err != nil {
		return &storage.StoreError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	keys, err := s.kv.Keys(blobPrefix)
	if err != nil {
		return nil, &storage.StoreError{Op: "list", Err: err}
	}
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = strings.TrimPrefix(k, blobPrefix)
	}
	return paths, nil
}
