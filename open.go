package assetsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aweris/assetsync/internal/compression"
	"github.com/aweris/assetsync/internal/config"
	"github.com/aweris/assetsync/internal/storage"
	"github.com/aweris/assetsync/internal/storage/fsblob"
	"github.com/aweris/assetsync/internal/storage/hashstore"
	"github.com/aweris/assetsync/internal/storage/kv"
	"github.com/aweris/assetsync/internal/storage/kvblob"
	"github.com/aweris/assetsync/internal/transport"
)

// Cache is the persisted state shared by successive runs.
type Cache struct {
	Blobs      BlobStore
	Hashes     HashStore
	kv         StringStore
	compressor *compression.Compressor
}

// OpenCache opens the stores selected by cfg under cfg.CacheDir.
func OpenCache(cfg config.Config) (*Cache, error) {
	if cfg.KVStore != config.KVStoreMemory || cfg.BlobStore == config.BlobStoreFS {
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	compressor, err := compression.NewCompressor(cfg.CompressionLevel, cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}

	var store storage.StringStore
	switch cfg.KVStore {
	case config.KVStoreSQLite:
		store, err = kv.OpenSQLite(filepath.Join(cfg.CacheDir, "index.db"))
	case config.KVStoreMemory:
		store = kv.NewMemory()
	default:
		store, err = kv.OpenFile(filepath.Join(cfg.CacheDir, "index.json"))
	}
	if err != nil {
		_ = compressor.Close()
		return nil, err
	}

	c := &Cache{Hashes: hashstore.New(store), kv: store, compressor: compressor}
	switch cfg.BlobStore {
	case config.BlobStoreKV:
		c.Blobs = kvblob.New(store, compressor)
	default:
		blobs, err := fsblob.New(filepath.Join(cfg.CacheDir, "blobs"), cfg.MemoryCacheSize, compressor)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Blobs = blobs
	}
	return c, nil
}

// Records returns the path -> hash mapping of synchronized files.
func (c *Cache) Records(ctx context.Context) (map[string]string, error) {
	return c.Hashes.All(ctx)
}

// Remove forgets path. The hash goes first so an interrupted removal leaves
// the path stale rather than fresh without content.
func (c *Cache) Remove(ctx context.Context, path string) error {
	if err := c.Hashes.Delete(ctx, path); err != nil {
		return err
	}
	return c.Blobs.Remove(ctx, path)
}

func (c *Cache) Close() error {
	return errors.Join(c.kv.Close(), c.compressor.Close())
}

// NewTransport returns the transport described by cfg: http, https, file
// and oci URLs, with cfg.Retry applied. A nil auth uses the docker keychain
// for registries.
func NewTransport(cfg config.Config, auth Authenticator) Transport {
	h := transport.NewHTTP(cfg.Timeout)
	mux := transport.NewMux().
		Handle("http", h).
		Handle("https", h).
		Handle("file", transport.File{}).
		Handle(transport.OCIScheme, &transport.OCI{Auth: auth})
	return transport.WithRetry(mux, transport.Policy{
		Attempts: cfg.Retry.Attempts,
		Backoff:  cfg.Retry.Backoff,
	})
}

// Open builds a Loader from cfg, with a cache and transport it owns. opts
// are applied after cfg and may override either. Close the Loader when done.
func Open(cfg config.Config, opts ...Option) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := OpenCache(cfg)
	if err != nil {
		return nil, err
	}

	options := defaultOptions()
	options.Transport = NewTransport(cfg, nil)
	options.Blobs = cache.Blobs
	options.Hashes = cache.Hashes
	options.Concurrency = cfg.Concurrency
	options.UseLocalCache = cfg.UseLocalCache
	options.VersionRange = cfg.SupportedManifestVersionRange
	options.BaseURL = cfg.BaseURL
	for _, opt := range opts {
		opt(options)
	}

	l, err := newLoader(cfg.ManifestURL, options)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	l.closers = append(l.closers, cache.Close)
	return l, nil
}
