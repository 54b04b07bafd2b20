// Package apply materializes manifest nodes onto a render surface, strictly
// in manifest order.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/metrics"
	"github.com/aweris/assetsync/internal/storage"
)

// Surface is the document nodes are applied to.
type Surface interface {
	CreateNode(kind manifest.Kind, attrs map[string]string) (Element, error)
	Append(el Element) error
}

// Element is a node created by a Surface. An appended element without
// content loads its reference and reports exactly one of OnLoad or OnError.
type Element interface {
	SetContent(data []byte)
	OnLoad(fn func())
	OnError(fn func(error))
}

// NodeLoadError reports a required node that could not be applied.
type NodeLoadError struct {
	Path  string
	Cause error
}

func (e *NodeLoadError) Error() string {
	return fmt.Sprintf("apply: node %s failed to load: %v", e.Path, e.Cause)
}

func (e *NodeLoadError) Unwrap() error { return e.Cause }

type Status string

const (
	Applied         Status = "applied"        // from the blob store
	AppliedRemote   Status = "applied-remote" // by reference
	SkippedOptional Status = "skipped"
)

// Outcome is the result of one node. Err is set for SkippedOptional.
type Outcome struct {
	Path   string
	Status Status
	Err    error
}

type Options struct {
	// Resolve maps a node path to the reference a remote node loads.
	// Defaults to the path itself.
	Resolve func(path string) string
	// Cached reports whether the stored copy of path may be applied. Paths
	// it rejects are applied by reference without reading the blob store.
	// Nil trusts any stored blob.
	Cached  func(path string) bool
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type Applier struct {
	surface Surface
	blobs   storage.BlobStore
	opts    Options
}

// New returns an Applier. A nil blobs applies every node by reference.
func New(surface Surface, blobs storage.BlobStore, opts Options) *Applier {
	if opts.Resolve == nil {
		opts.Resolve = func(path string) string { return path }
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Applier{surface: surface, blobs: blobs, opts: opts}
}

// Apply processes nodes one at a time. Node k+1 is not started before node
// k has loaded, failed, or been skipped.
//
// A failing optional node is recorded as SkippedOptional. A failing required
// node stops processing with a *NodeLoadError. Store failures and context
// cancellation stop processing regardless of optionality.
func (a *Applier) Apply(ctx context.Context, nodes []manifest.Node) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(nodes))
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		status, err := a.applyNode(ctx, n)
		if err == nil {
			outcomes = append(outcomes, Outcome{Path: n.Path, Status: status})
			continue
		}

		var se *storage.StoreError
		if errors.As(err, &se) {
			return outcomes, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomes, ctxErr
		}
		if n.Optional {
			a.opts.Metrics.Node(metrics.SourceSkipped)
			a.opts.Logger.Warn("skipping optional node", "path", n.Path, "error", err)
			outcomes = append(outcomes, Outcome{Path: n.Path, Status: SkippedOptional, Err: err})
			continue
		}
		return outcomes, &NodeLoadError{Path: n.Path, Cause: err}
	}
	return outcomes, nil
}

func (a *Applier) applyNode(ctx context.Context, n manifest.Node) (Status, error) {
	if a.blobs != nil && (a.opts.Cached == nil || a.opts.Cached(n.Path)) {
		ok, err := a.blobs.Has(ctx, n.Path)
		if err != nil {
			return "", err
		}
		if ok {
			return Applied, a.applyCached(ctx, n)
		}
	}
	return AppliedRemote, a.applyRemote(ctx, n)
}

func (a *Applier) applyCached(ctx context.Context, n manifest.Node) error {
	blob, err := a.blobs.Read(ctx, n.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &storage.StoreError{Op: "read", Path: n.Path, Err: err}
		}
		return err
	}

	el, err := a.surface.CreateNode(n.Kind, maps.Clone(n.Attributes))
	if err != nil {
		return err
	}
	el.SetContent(blob.Data)
	if err := a.surface.Append(el); err != nil {
		return err
	}

	a.opts.Metrics.Node(metrics.SourceCache)
	a.opts.Logger.Debug("applied node", "path", n.Path, "source", metrics.SourceCache)
	return nil
}

func (a *Applier) applyRemote(ctx context.Context, n manifest.Node) error {
	attrs := maps.Clone(n.Attributes)
	if attrs == nil {
		attrs = make(map[string]string)
	}
	ref := a.opts.Resolve(n.Path)
	switch n.Kind {
	case manifest.KindStylesheet:
		attrs["rel"] = "stylesheet"
		attrs["href"] = ref
	default:
		attrs["src"] = ref
	}

	el, err := a.surface.CreateNode(n.Kind, attrs)
	if err != nil {
		return err
	}

	// First signal wins; the element may report more than once.
	done := make(chan error, 1)
	el.OnLoad(func() {
		select {
		case done <- nil:
		default:
		}
	})
	el.OnError(func(err error) {
		if err == nil {
			err = errors.New("load failed")
		}
		select {
		case done <- err:
		default:
		}
	})

	if err := a.surface.Append(el); err != nil {
		return err
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	a.opts.Metrics.Node(metrics.SourceRemote)
	a.opts.Logger.Debug("applied node", "path", n.Path, "source", metrics.SourceRemote, "ref", ref)
	return nil
}
