package assetsync

import (
	"github.com/aweris/assetsync/internal/apply"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/metrics"
	"github.com/aweris/assetsync/internal/storage"
	"github.com/aweris/assetsync/internal/syncer"
	"github.com/aweris/assetsync/internal/transport"
)

// Collaborator interfaces, re-exported so callers can supply their own.
type (
	BlobStore   = storage.BlobStore
	HashStore   = storage.HashStore
	StringStore = storage.StringStore
	Blob        = storage.Blob

	Transport     = transport.Transport
	Response      = transport.Response
	Authenticator = transport.Authenticator

	Surface = apply.Surface
	Element = apply.Element
	Outcome = apply.Outcome
	Report  = syncer.Report

	Manifest = manifest.Manifest
	Entry    = manifest.Entry
	Node     = manifest.Node
	Kind     = manifest.Kind

	Metrics = metrics.Metrics
)

// NewMetrics registers the loader metrics with reg.
var NewMetrics = metrics.New

const (
	KindScript     = manifest.KindScript
	KindStylesheet = manifest.KindStylesheet
)
