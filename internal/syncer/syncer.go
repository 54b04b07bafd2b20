// Package syncer fetches stale manifest entries, verifies them and persists
// them to the local cache.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/assetsync/internal/digest"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/metrics"
	"github.com/aweris/assetsync/internal/storage"
	"github.com/aweris/assetsync/internal/transport"
)

const DefaultConcurrency = 5

// ErrAborted wraps the first failure of a required entry.
var ErrAborted = errors.New("syncer: aborted")

// Locator maps an entry to the URL it is fetched from.
type Locator func(manifest.Entry) (string, error)

type Options struct {
	// Concurrency bounds in-flight fetches. Defaults to DefaultConcurrency.
	Concurrency int
	// Locate defaults to using the entry path as URL.
	Locate  Locator
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Synchronizer is stateless between calls; all state lives in the stores.
type Synchronizer struct {
	transport transport.Transport
	blobs     storage.BlobStore
	hashes    storage.HashStore
	opts      Options
}

func New(t transport.Transport, blobs storage.BlobStore, hashes storage.HashStore, opts Options) *Synchronizer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Locate == nil {
		opts.Locate = func(e manifest.Entry) (string, error) { return e.Path, nil }
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synchronizer{transport: t, blobs: blobs, hashes: hashes, opts: opts}
}

// Report lists what a Synchronize call did. Slices are sorted.
type Report struct {
	Fetched []string // verified and persisted
	Skipped []string // optional entries that failed
	Bytes   int64    // bytes persisted
}

// Synchronize fetches every entry with at most Concurrency transfers in
// flight. Each fetched buffer is verified against the declared hash and, on
// a match, written to the blob store before the hash store is updated.
//
// A failing optional entry is logged and skipped. A failing required entry
// makes the call return an error wrapping ErrAborted and the first such
// failure; sibling transfers are not cancelled, and the call returns only
// after every entry has been attempted. Store failures are always fatal.
func (s *Synchronizer) Synchronize(ctx context.Context, entries []manifest.Entry, onProgress ProgressFunc) (Report, error) {
	var report Report
	if len(entries) == 0 {
		return report, nil
	}

	start := time.Now()
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	prog := newProgress(total, onProgress)
	prog.start()

	s.opts.Logger.Info("synchronizing", "files", len(entries), "bytes", total, "concurrency", s.opts.Concurrency)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.opts.Concurrency).WithErrors().WithFirstError()
	for _, e := range entries {
		e := e
		p.Go(func() error {
			fetched, err := s.syncEntry(ctx, e, prog.track(e.Size))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				return err
			case fetched >= 0:
				report.Fetched = append(report.Fetched, e.Path)
				report.Bytes += int64(fetched)
			default:
				report.Skipped = append(report.Skipped, e.Path)
			}
			return nil
		})
	}
	err := p.Wait()

	sort.Strings(report.Fetched)
	sort.Strings(report.Skipped)
	s.opts.Metrics.SyncDuration(time.Since(start))

	if err != nil {
		s.opts.Logger.Error("synchronize aborted", "error", err)
		return report, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	s.opts.Logger.Info("synchronize complete",
		"fetched", len(report.Fetched),
		"skipped", len(report.Skipped),
		"bytes", report.Bytes,
		"duration", time.Since(start))
	return report, nil
}

// syncEntry returns the number of bytes persisted, or -1 when an optional
// entry was skipped.
func (s *Synchronizer) syncEntry(ctx context.Context, e manifest.Entry, tr *transfer) (int, error) {
	log := s.opts.Logger.With("path", e.Path)

	url, err := s.opts.Locate(e)
	if err != nil {
		tr.done()
		return s.tolerate(e, fmt.Errorf("locate %s: %w", e.Path, err))
	}

	log.Debug("fetching", "url", url)
	resp, err := s.transport.Fetch(ctx, url, tr.observe)
	tr.done()
	if err != nil {
		return s.tolerate(e, err)
	}

	d, err := digest.Parse(e.Hash)
	if err != nil {
		return s.tolerate(e, fmt.Errorf("%s: %w", e.Path, err))
	}
	computed, ok := d.Verify(resp.Body)
	if !ok {
		return s.tolerate(e, &digest.MismatchError{Path: e.Path, Expected: e.Hash, Computed: computed})
	}

	contentType := e.ContentType
	if contentType == "" {
		contentType = resp.ContentType
	}

	// Blob first, hash second: a crash in between leaves the path stale.
	if err := s.blobs.Write(ctx, e.Path, resp.Body, contentType); err != nil {
		s.opts.Metrics.File(metrics.ResultFailed, 0)
		return 0, err
	}
	if err := s.hashes.Set(ctx, e.Path, computed); err != nil {
		s.opts.Metrics.File(metrics.ResultFailed, 0)
		return 0, err
	}

	s.opts.Metrics.File(metrics.ResultFetched, len(resp.Body))
	log.Debug("stored", "hash", computed, "bytes", len(resp.Body))
	return len(resp.Body), nil
}

func (s *Synchronizer) tolerate(e manifest.Entry, err error) (int, error) {
	if e.Optional {
		s.opts.Metrics.File(metrics.ResultSkipped, 0)
		s.opts.Logger.Warn("skipping optional file", "path", e.Path, "error", err)
		return -1, nil
	}
	s.opts.Metrics.File(metrics.ResultFailed, 0)
	return 0, err
}
