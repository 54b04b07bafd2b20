package assetsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aweris/assetsync/internal/apply"
	"github.com/aweris/assetsync/internal/compression"
	"github.com/aweris/assetsync/internal/diff"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/storage/hashstore"
	"github.com/aweris/assetsync/internal/storage/kv"
	"github.com/aweris/assetsync/internal/storage/kvblob"
	"github.com/aweris/assetsync/internal/syncer"
	"github.com/aweris/assetsync/internal/transport"
)

// Loader runs the pipeline for one manifest:
// resolve, diff, synchronize, apply.
type Loader struct {
	manifestURL string
	opts        *Options
	resolver    *manifest.Resolver
	locator     *locator
	log         *slog.Logger

	state   atomic.Int32
	started atomic.Bool

	mu       sync.Mutex
	report   syncer.Report
	outcomes []apply.Outcome

	closers []func() error
}

// New returns a Loader for manifestURL. A surface is required; the stores
// default to memory and the transport to http, https and file URLs.
func New(manifestURL string, opts ...Option) (*Loader, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newLoader(manifestURL, options)
}

func newLoader(manifestURL string, options *Options) (*Loader, error) {
	if manifestURL == "" {
		return nil, ErrNoManifestURL
	}
	if options.Surface == nil {
		return nil, ErrNoSurface
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	l := &Loader{manifestURL: manifestURL, opts: options, log: options.Logger}

	if options.Transport == nil {
		h := transport.NewHTTP(transport.DefaultTimeout)
		options.Transport = transport.NewMux().
			Handle("http", h).
			Handle("https", h).
			Handle("file", transport.File{})
	}
	if options.Blobs == nil || options.Hashes == nil {
		c, err := compression.NewCompressor(1, false)
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, c.Close)
		store := kv.NewMemory()
		if options.Blobs == nil {
			options.Blobs = kvblob.New(store, c)
		}
		if options.Hashes == nil {
			options.Hashes = hashstore.New(store)
		}
	}

	resolver, err := manifest.NewResolver(options.Transport, options.VersionRange)
	if err != nil {
		return nil, err
	}
	loc, err := newLocator(manifestURL, options.BaseURL)
	if err != nil {
		return nil, err
	}
	l.resolver = resolver
	l.locator = loc
	return l, nil
}

func (l *Loader) State() State { return State(l.state.Load()) }

// Report describes what the synchronize stage did.
func (l *Loader) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.report
}

// Outcomes lists the applied nodes in manifest order.
func (l *Loader) Outcomes() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Outcome(nil), l.outcomes...)
}

// Run executes the pipeline. On success the observer receives exactly one
// Loaded event; on failure exactly one Failed event carrying the returned
// error. Work already committed to the stores is kept either way.
func (l *Loader) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := l.run(ctx); err != nil {
		l.setState(StateErrored)
		l.log.Error("load failed", "manifest", l.manifestURL, "error", err)
		l.emit(Failed{Err: err})
		return err
	}

	l.setState(StateLoaded)
	l.log.Info("loaded", "manifest", l.manifestURL)
	l.emit(Loaded{})
	return nil
}

func (l *Loader) run(ctx context.Context) error {
	l.setState(StateResolvingManifest)
	m, err := l.resolver.Resolve(ctx, l.manifestURL)
	if err != nil {
		return err
	}
	l.log.Info("manifest resolved", "version", m.Version, "files", len(m.Files), "nodes", len(m.Nodes))

	blobs := l.opts.Blobs
	verified := make(map[string]bool)
	if l.opts.UseLocalCache {
		l.setState(StateDiffing)
		result, err := diff.Diff(ctx, m, l.opts.Hashes)
		if err != nil {
			return err
		}
		l.log.Debug("diffed", "fresh", len(result.Fresh), "stale", len(result.Stale))

		l.setState(StateSynchronizing)
		s := syncer.New(l.opts.Transport, l.opts.Blobs, l.opts.Hashes, syncer.Options{
			Concurrency: l.opts.Concurrency,
			Locate:      l.locator.entry,
			Logger:      l.log,
			Metrics:     l.opts.Metrics,
		})
		report, err := s.Synchronize(ctx, m.Entries(result.Stale), func(loaded, total int64) {
			l.emit(Progress{Loaded: loaded, Total: total})
		})
		l.mu.Lock()
		l.report = report
		l.mu.Unlock()
		if err != nil {
			return err
		}

		// Only content matching the current manifest is applied from the
		// cache; skipped optional entries may still hold an older blob.
		for _, p := range result.Fresh {
			verified[p] = true
		}
		for _, p := range report.Fetched {
			verified[p] = true
		}
	} else {
		blobs = nil
	}

	l.setState(StateApplying)
	a := apply.New(l.opts.Surface, blobs, apply.Options{
		Resolve: l.locator.node(m.Files),
		Cached:  func(path string) bool { return verified[path] },
		Logger:  l.log,
		Metrics: l.opts.Metrics,
	})
	outcomes, err := a.Apply(ctx, m.Nodes)
	l.mu.Lock()
	l.outcomes = outcomes
	l.mu.Unlock()
	return err
}

// Close releases stores opened by the loader.
func (l *Loader) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		errs = append(errs, l.closers[i]())
	}
	l.closers = nil
	return errors.Join(errs...)
}

func (l *Loader) setState(s State) {
	l.state.Store(int32(s))
	l.log.Debug("state", "state", s)
}

func (l *Loader) emit(ev Event) {
	if l.opts.Observer != nil {
		l.opts.Observer(ev)
	}
}
