// Package fsblob implements storage.BlobStore on the local filesystem.
package fsblob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aweris/assetsync/internal/compression"
	"github.com/aweris/assetsync/internal/storage"
)

const metaSuffix = ".meta"

var _ storage.BlobStore = (*Store)(nil)

// Store keeps each blob as a compressed object file plus a JSON sidecar.
//
// Storage layout:
//
//	basePath/
//	  objects/
//	    ab/cd123...       (payload, keyed by sha256 of the manifest path)
//	    ab/cd123....meta  ({"path": ..., "content_type": ..., "size": ...})
//
// The sidecar is written last, so an object without a sidecar is invisible.
type Store struct {
	basePath   string
	cache      *lru.Cache[string, *storage.Blob]
	compressor *compression.Compressor
}

type meta struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// New creates the object directory under basePath. cacheSize bounds the
// number of decoded blobs kept in memory; zero or less disables the cache.
func New(basePath string, cacheSize int, compressor *compression.Compressor) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "objects"), 0755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}

	s := &Store{basePath: basePath, compressor: compressor}
	if cacheSize > 0 {
		cache, err := lru.New[string, *storage.Blob](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *Store) Has(_ context.Context, path string) (bool, error) {
	if s.cache != nil && s.cache.Contains(path) {
		return true, nil
	}
	_, err := os.Stat(s.objectPath(path) + metaSuffix)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &storage.StoreError{Op: "stat", Path: path, Err: err}
}

func (s *Store) Read(_ context.Context, path string) (*storage.Blob, error) {
	if s.cache != nil {
		if blob, ok := s.cache.Get(path); ok {
			return blob, nil
		}
	}

	objPath := s.objectPath(path)
	m, err := readMeta(objPath + metaSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, &storage.StoreError{Op: "read meta", Path: path, Err: err}
	}

	packed, err := os.ReadFile(objPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, &storage.StoreError{Op: "read", Path: path, Err: err}
	}

	data, err := s.compressor.Decompress(packed)
	if err != nil {
		return nil, &storage.StoreError{Op: "decompress", Path: path, Err: err}
	}
	if int64(len(data)) != m.Size {
		return nil, &storage.StoreError{Op: "read", Path: path,
			Err: fmt.Errorf("size mismatch: meta %d, object %d", m.Size, len(data))}
	}

	blob := &storage.Blob{Data: data, ContentType: m.ContentType}
	if s.cache != nil {
		s.cache.Add(path, blob)
	}
	return blob, nil
}

func (s *Store) Write(_ context.Context, path string, data []byte, contentType string) error {
	objPath := s.objectPath(path)
	if err := os.MkdirAll(filepath.Dir(objPath), 0755); err != nil {
		return &storage.StoreError{Op: "write", Path: path, Err: err}
	}

	// Hide the previous version while the payload is replaced.
	if err := os.Remove(objPath + metaSuffix); err != nil && !os.IsNotExist(err) {
		return &storage.StoreError{Op: "write", Path: path, Err: err}
	}
	if s.cache != nil {
		s.cache.Remove(path)
	}

	if err := writeAtomic(objPath, s.compressor.Compress(data)); err != nil {
		return &storage.StoreError{Op: "write", Path: path, Err: err}
	}

	metaData, err := json.Marshal(meta{Path: path, ContentType: contentType, Size: int64(len(data))})
	if err != nil {
		return &storage.StoreError{Op: "write meta", Path: path, Err: err}
	}
	if err := writeAtomic(objPath+metaSuffix, metaData); err != nil {
		return &storage.StoreError{Op: "write meta", Path: path, Err: err}
	}
	return nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	if s.cache != nil {
		s.cache.Remove(path)
	}
	objPath := s.objectPath(path)
	for _, p := range []string{objPath + metaSuffix, objPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return &storage.StoreError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	var paths []string
	root := filepath.Join(s.basePath, "objects")
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		m, err := readMeta(p)
		if err != nil {
			return err
		}
		paths = append(paths, m.Path)
		return nil
	})
	if err != nil {
		return nil, &storage.StoreError{Op: "list", Err: err}
	}
	sort.Strings(paths)
	return paths, nil
}

// objectPath returns the filesystem path for a manifest path.
// Git-style sharding: objects/ab/cd123...
func (s *Store) objectPath(path string) string {
	h := sha256.Sum256([]byte(path))
	key := hex.EncodeToString(h[:])
	return filepath.Join(s.basePath, "objects", key[:2], key[2:])
}

func readMeta(path string) (*meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".assetsync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
