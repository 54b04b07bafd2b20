package digest

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var payload = []byte("document.title = 'hi';")

func cidFor(t *testing.T, data []byte) string {
	t.Helper()
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatal(err)
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

func TestParse_Verify(t *testing.T) {
	md5sum := md5.Sum(payload)
	sha := SHA256(payload)
	shaHex := strings.TrimPrefix(sha, "sha256:")

	tests := []struct {
		name string
		decl string
	}{
		{"oci digest", sha},
		{"oci digest upper case", strings.ToUpper(sha)},
		{"bare sha256 hex", shaHex},
		{"bare md5 hex", hex.EncodeToString(md5sum[:])},
		{"cidv1", cidFor(t, payload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.decl)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.decl, err)
			}
			computed, ok := d.Verify(payload)
			if !ok {
				t.Fatalf("Verify failed: computed %s, declared %s", computed, d)
			}
			if computed != d.String() {
				t.Errorf("computed %s != canonical %s", computed, d)
			}
			if _, ok := d.Verify([]byte("tampered")); ok {
				t.Error("Verify accepted tampered content")
			}
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	for _, decl := range []string{"", "   ", "xyz", "sha256:nothex", "md5:0123", "abc123"} {
		if _, err := Parse(decl); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Parse(%q) err = %v, want ErrUnsupported", decl, err)
		}
	}
}

func TestDigest_OCI(t *testing.T) {
	sha := SHA256(payload)

	h, ok := MustParse(sha).OCI()
	if !ok || h.String() != sha {
		t.Fatalf("OCI() = %v, %v", h, ok)
	}
	h, ok = MustParse(strings.TrimPrefix(sha, "sha256:")).OCI()
	if !ok || h.String() != sha {
		t.Fatalf("OCI() for bare hex = %v, %v", h, ok)
	}
	if _, ok := MustParse(cidFor(t, payload)).OCI(); ok {
		t.Fatal("CID should not map to an OCI digest")
	}
}

func TestMismatchError(t *testing.T) {
	err := error(&MismatchError{Path: "a.js", Expected: "H1", Computed: "H2"})
	var mm *MismatchError
	if !errors.As(err, &mm) || mm.Expected != "H1" || mm.Computed != "H2" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if !strings.Contains(err.Error(), "a.js") {
		t.Errorf("message lacks path: %s", err)
	}
}
