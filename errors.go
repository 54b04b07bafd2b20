package assetsync

import (
	"errors"

	"github.com/aweris/assetsync/internal/apply"
	"github.com/aweris/assetsync/internal/digest"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/storage"
	"github.com/aweris/assetsync/internal/syncer"
	"github.com/aweris/assetsync/internal/transport"
)

var (
	ErrManifestUnreachable  = manifest.ErrUnreachable
	ErrManifestMalformed    = manifest.ErrMalformed
	ErrManifestIncompatible = manifest.ErrIncompatible
	ErrSyncAborted          = syncer.ErrAborted
	ErrNotFound             = storage.ErrNotFound

	ErrAlreadyStarted = errors.New("assetsync: loader already started")
	ErrNoManifestURL  = errors.New("assetsync: no manifest url")
	ErrNoSurface      = errors.New("assetsync: no render surface")
)

type (
	IntegrityMismatchError = digest.MismatchError
	TransportError         = transport.Error
	NodeLoadError          = apply.NodeLoadError
	StoreError             = storage.StoreError
)
