package assetsync

import (
	"log/slog"

	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/metrics"
	"github.com/aweris/assetsync/internal/syncer"
)

// Options configures a Loader.
type Options struct {
	Transport     Transport
	Blobs         BlobStore
	Hashes        HashStore
	Surface       Surface
	Concurrency   int
	UseLocalCache bool
	VersionRange  string
	BaseURL       string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Observer      func(Event)
}

// Option is a functional option for configuring New and Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Concurrency:   syncer.DefaultConcurrency,
		UseLocalCache: true,
		VersionRange:  manifest.DefaultVersionRange,
	}
}

// WithTransport sets how the manifest and files are fetched.
func WithTransport(t Transport) Option {
	return func(o *Options) { o.Transport = t }
}

// WithStores sets the blob and hash stores. Both default to memory.
func WithStores(blobs BlobStore, hashes HashStore) Option {
	return func(o *Options) {
		o.Blobs = blobs
		o.Hashes = hashes
	}
}

// WithSurface sets the surface nodes are applied to.
func WithSurface(s Surface) Option {
	return func(o *Options) { o.Surface = s }
}

// WithConcurrency sets the number of parallel fetches.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithLocalCache toggles the cache. When disabled, nothing is synchronized
// and every node is applied by reference.
func WithLocalCache(enabled bool) Option {
	return func(o *Options) { o.UseLocalCache = enabled }
}

// WithVersionRange sets the supported manifest version range, e.g. "^2.0.0".
func WithVersionRange(r string) Option {
	return func(o *Options) { o.VersionRange = r }
}

// WithBaseURL sets where manifest paths are resolved. Defaults to the
// manifest's directory. An oci:// base fetches files by digest.
func WithBaseURL(u string) Option {
	return func(o *Options) { o.BaseURL = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithObserver registers fn for lifecycle events. Progress events may be
// delivered from worker goroutines, one at a time.
func WithObserver(fn func(Event)) Option {
	return func(o *Options) { o.Observer = fn }
}
