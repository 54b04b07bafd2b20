// Package storage defines the persistence boundaries of the asset cache.
//
// Two stores are kept side by side:
//   - BlobStore holds downloaded content keyed by manifest path
//   - HashStore holds the last verified hash per manifest path
//
// Both may be backed by a flat StringStore (see package kv), which is how the
// key-value blob backend and every HashStore are implemented.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("storage: not found")

// StoreError reports an I/O failure in a BlobStore or HashStore.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Blob is content read back from a BlobStore.
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobStore handles durable storage of downloaded content.
type BlobStore interface {
	Has(ctx context.Context, path string) (bool, error)
	// Read returns ErrNotFound when the path was never written or was removed.
	Read(ctx context.Context, path string) (*Blob, error)
	Write(ctx context.Context, path string, data []byte, contentType string) error
	// Remove is a no-op for absent paths.
	Remove(ctx context.Context, path string) error
	List(ctx context.Context) ([]string, error)
}

// HashStore is a persisted path -> hash mapping.
type HashStore interface {
	Get(ctx context.Context, path string) (hash string, ok bool, err error)
	Set(ctx context.Context, path, hash string) error
	Delete(ctx context.Context, path string) error
	All(ctx context.Context) (map[string]string, error)
}

// StringStore is a flat, persisted key -> string mapping.
type StringStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Keys returns the keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
	Close() error
}
