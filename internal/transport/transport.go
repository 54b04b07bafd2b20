// Package transport fetches remote resources into memory.
//
// Transports are selected by URL scheme through Mux:
//   - http, https: HTTP GET
//   - file: local files, handy for manifests on disk
//   - oci: blobs addressed by digest in an OCI registry
//     (oci://ghcr.io/org/assets@sha256:...)
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

// ProgressFunc receives cumulative bytes read for one transfer. total is the
// size the remote announced, or -1 when it is unknown. Announced sizes may be
// transfer-encoded sizes rather than content sizes.
type ProgressFunc func(loaded, total int64)

// Response is a fully buffered fetch result.
type Response struct {
	Body        []byte
	ContentType string
}

// Transport performs a GET for a URL.
type Transport interface {
	Fetch(ctx context.Context, url string, progress ProgressFunc) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, url string, progress ProgressFunc) (*Response, error)

func (f TransportFunc) Fetch(ctx context.Context, url string, progress ProgressFunc) (*Response, error) {
	return f(ctx, url, progress)
}

// Kind classifies transport failures.
type Kind string

const (
	KindHTTPStatus Kind = "http-status"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindAborted    Kind = "aborted"
)

// Error is returned by every transport in this package.
type Error struct {
	Kind   Kind
	URL    string
	Status int // set for KindHTTPStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("transport: GET %s: status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport: GET %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("transport: GET %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps a low-level failure to a transport Error.
func classify(ctx context.Context, rawURL string, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindAborted, URL: rawURL, Err: err}
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindAborted, URL: rawURL, Err: err}
	default:
		return &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Mux routes fetches to a Transport by URL scheme.
type Mux struct {
	schemes map[string]Transport
}

func NewMux() *Mux {
	return &Mux{schemes: make(map[string]Transport)}
}

// Handle registers t for scheme, replacing any previous registration.
func (m *Mux) Handle(scheme string, t Transport) *Mux {
	m.schemes[scheme] = t
	return m
}

func (m *Mux) Fetch(ctx context.Context, rawURL string, progress ProgressFunc) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	t, ok := m.schemes[u.Scheme]
	if !ok {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	return t.Fetch(ctx, rawURL, progress)
}

// readAll buffers r while reporting progress. A known total preallocates.
func readAll(ctx context.Context, r io.Reader, total int64, progress ProgressFunc) ([]byte, error) {
	capacity := 0
	if total > 0 && total < 64<<20 {
		capacity = int(total)
	}
	buf := make([]byte, 0, capacity)
	chunk := make([]byte, 32*1024)
	var loaded int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			loaded += int64(n)
			if progress != nil {
				progress(loaded, total)
			}
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
