package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

const OCIScheme = "oci"

// OCI fetches blobs by digest from an OCI registry. URLs take the form
// oci://<registry>/<repository>@<algorithm>:<hex>.
type OCI struct {
	Auth     Authenticator
	Insecure bool // allow plain-http registries
}

func (t *OCI) Fetch(ctx context.Context, rawURL string, progress ProgressFunc) (*Response, error) {
	ref, err := parseOCIRef(rawURL, t.Insecure)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	opts := append(t.remoteOptions(ref.Context().RegistryStr()), remote.WithContext(ctx))
	layer, err := remote.Layer(ref, opts...)
	if err != nil {
		return nil, classify(ctx, rawURL, err)
	}

	var total int64 = -1
	if size, err := layer.Size(); err == nil {
		total = size
	}

	rc, err := layer.Compressed()
	if err != nil {
		return nil, classify(ctx, rawURL, fmt.Errorf("open blob: %w", err))
	}
	defer func() {
		_ = rc.Close()
	}()

	body, err := readAll(ctx, rc, total, progress)
	if err != nil {
		return nil, classify(ctx, rawURL, fmt.Errorf("read blob: %w", err))
	}

	contentType := "application/octet-stream"
	if mt, err := layer.MediaType(); err == nil && mt != "" {
		contentType = string(mt)
	}
	return &Response{Body: body, ContentType: contentType}, nil
}

// OCIRef builds the oci:// URL for a blob in repository.
func OCIRef(repository, digest string) string {
	return OCIScheme + "://" + strings.TrimPrefix(repository, OCIScheme+"://") + "@" + digest
}

func parseOCIRef(rawURL string, insecure bool) (name.Digest, error) {
	s, ok := strings.CutPrefix(rawURL, OCIScheme+"://")
	if !ok {
		return name.Digest{}, fmt.Errorf("not an %s url: %s", OCIScheme, rawURL)
	}
	var opts []name.Option
	if insecure {
		opts = append(opts, name.Insecure)
	}
	ref, err := name.NewDigest(s, opts...)
	if err != nil {
		return name.Digest{}, fmt.Errorf("invalid blob ref %q: %w", s, err)
	}
	return ref, nil
}

func (t *OCI) remoteOptions(registry string) []remote.Option {
	if t.Auth != nil {
		username, password, err := t.Auth.Authenticate(registry)
		if err == nil && username != "" {
			return []remote.Option{remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})}
		}
	}
	return []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
}
