package assetsync

import (
	"testing"

	"github.com/aweris/assetsync/internal/digest"
	"github.com/aweris/assetsync/internal/manifest"
)

func TestLocator(t *testing.T) {
	sha := digest.SHA256([]byte("x"))
	md5 := "9dd4e461268c8034f5c8564e155c67a6"

	tests := []struct {
		name     string
		manifest string
		base     string
		entry    manifest.Entry
		want     string
		wantErr  bool
	}{
		{
			name:     "relative to manifest",
			manifest: "https://cdn.test/app/manifest.json",
			entry:    manifest.Entry{Path: "js/a.js", Hash: sha},
			want:     "https://cdn.test/app/js/a.js",
		},
		{
			name:     "base without trailing slash",
			manifest: "https://cdn.test/app/manifest.json",
			base:     "https://assets.test/v2",
			entry:    manifest.Entry{Path: "a.js", Hash: sha},
			want:     "https://assets.test/v2/a.js",
		},
		{
			name:     "absolute path",
			manifest: "https://cdn.test/app/manifest.json",
			entry:    manifest.Entry{Path: "https://other.test/a.js", Hash: sha},
			want:     "https://other.test/a.js",
		},
		{
			name:     "file manifest",
			manifest: "file:///srv/site/manifest.json",
			entry:    manifest.Entry{Path: "a.css", Hash: sha},
			want:     "file:///srv/site/a.css",
		},
		{
			name:     "oci by digest",
			manifest: "https://cdn.test/app/manifest.json",
			base:     "oci://ghcr.io/acme/assets/",
			entry:    manifest.Entry{Path: "a.js", Hash: sha},
			want:     "oci://ghcr.io/acme/assets@" + sha,
		},
		{
			name:     "oci needs sha256",
			manifest: "https://cdn.test/app/manifest.json",
			base:     "oci://ghcr.io/acme/assets",
			entry:    manifest.Entry{Path: "a.js", Hash: md5},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLocator(tt.manifest, tt.base)
			if err != nil {
				t.Fatal(err)
			}
			got, err := l.entry(tt.entry)
			if tt.wantErr {
				if err == nil {
					t.Errorf("entry() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("entry() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocator_NodeFallsBackForRemoteOnlyPaths(t *testing.T) {
	l, err := newLocator("https://cdn.test/app/manifest.json", "oci://ghcr.io/acme/assets")
	if err != nil {
		t.Fatal(err)
	}
	sha := digest.SHA256([]byte("x"))
	resolve := l.node(map[string]manifest.Entry{"a.js": {Path: "a.js", Hash: sha}})

	if got := resolve("a.js"); got != "oci://ghcr.io/acme/assets@"+sha {
		t.Errorf("cached path = %q", got)
	}
	if got := resolve("vendor/x.js"); got != "https://cdn.test/app/vendor/x.js" {
		t.Errorf("remote-only path = %q", got)
	}
}
