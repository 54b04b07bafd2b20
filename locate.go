package assetsync

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aweris/assetsync/internal/digest"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/transport"
)

// locator turns manifest paths into fetchable references.
type locator struct {
	base *url.URL
	// oci is set when files are addressed by digest in a registry repository.
	oci string
}

func newLocator(manifestURL, baseURL string) (*locator, error) {
	if strings.HasPrefix(baseURL, transport.OCIScheme+"://") {
		m, err := url.Parse(manifestURL)
		if err != nil {
			return nil, fmt.Errorf("parse manifest url: %w", err)
		}
		return &locator{base: m, oci: strings.TrimSuffix(baseURL, "/")}, nil
	}

	raw := baseURL
	if raw == "" {
		raw = manifestURL
	} else if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &locator{base: base}, nil
}

func (l *locator) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return l.base.ResolveReference(ref).String()
}

// entry returns the URL an entry is fetched from.
func (l *locator) entry(e manifest.Entry) (string, error) {
	if l.oci == "" {
		return l.resolve(e.Path), nil
	}
	d, err := digest.Parse(e.Hash)
	if err != nil {
		return "", err
	}
	h, ok := d.OCI()
	if !ok {
		return "", fmt.Errorf("hash %s cannot address an oci blob", e.Hash)
	}
	return transport.OCIRef(l.oci, h.String()), nil
}

// node returns the reference a remote node loads. Paths not in files are
// resolved against the manifest location even under an oci base.
func (l *locator) node(files map[string]manifest.Entry) func(string) string {
	return func(path string) string {
		if e, ok := files[path]; ok {
			if u, err := l.entry(e); err == nil {
				return u
			}
		}
		return l.resolve(path)
	}
}
