// Package digest verifies downloaded content against the hash a manifest
// declares for it.
//
// Accepted declarations:
//
//	sha256:9f86d0...            OCI-style algorithm:hex digest
//	9f86d081884c7d65...         bare hex; length selects md5, sha1, sha256 or sha512
//	bafkreie...  / Qm...        CIDv1 / CIDv0; the CID prefix selects the multihash
package digest

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/ipfs/go-cid"
	v1 "github.com/google/go-containerregistry/pkg/v1"
)

var ErrUnsupported = errors.New("digest: unsupported hash format")

// MismatchError reports content whose hash disagrees with its declaration.
type MismatchError struct {
	Path     string
	Expected string
	Computed string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest: integrity mismatch for %s: expected %s, computed %s", e.Path, e.Expected, e.Computed)
}

type format int

const (
	formatHex format = iota
	formatOCI
	formatCID
)

// Digest is a parsed hash declaration.
type Digest struct {
	format format
	hexAlg string // formatHex
	oci    v1.Hash
	cid    cid.Cid
	raw    string
}

// Parse recognizes s and returns it in canonical form.
func Parse(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, fmt.Errorf("%w: empty", ErrUnsupported)
	}

	if strings.Contains(s, ":") {
		algo, hx, _ := strings.Cut(s, ":")
		h, err := v1.NewHash(strings.ToLower(algo) + ":" + strings.ToLower(hx))
		if err != nil {
			return Digest{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		if h.Algorithm != "sha256" {
			return Digest{}, fmt.Errorf("%w: algorithm %q", ErrUnsupported, h.Algorithm)
		}
		return Digest{format: formatOCI, oci: h, raw: h.String()}, nil
	}

	if isHex(s) {
		if alg, ok := hexAlgorithms[len(s)]; ok {
			return Digest{format: formatHex, hexAlg: alg, raw: strings.ToLower(s)}, nil
		}
	}

	c, err := cid.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return Digest{format: formatCID, cid: c, raw: c.String()}, nil
}

// MustParse is Parse for tests and constants.
func MustParse(s string) Digest {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the canonical form. Two declarations of the same hash in
// different case or CID base compare equal after canonicalization.
func (d Digest) String() string { return d.raw }

// OCI returns the registry digest when the declaration can address an OCI blob.
func (d Digest) OCI() (v1.Hash, bool) {
	switch d.format {
	case formatOCI:
		return d.oci, true
	case formatHex:
		if d.hexAlg == "sha256" {
			return v1.Hash{Algorithm: "sha256", Hex: d.raw}, true
		}
	}
	return v1.Hash{}, false
}

// Verify hashes data with the declaration's algorithm. computed is rendered
// in the same canonical form as String, so ok == (computed == d.String()).
func (d Digest) Verify(data []byte) (computed string, ok bool) {
	switch d.format {
	case formatOCI:
		h, _, err := v1.SHA256(bytes.NewReader(data))
		if err != nil {
			return "", false
		}
		computed = h.String()
	case formatHex:
		hasher := newHexHasher(d.hexAlg)
		hasher.Write(data)
		computed = hex.EncodeToString(hasher.Sum(nil))
	case formatCID:
		sum, err := d.cid.Prefix().Sum(data)
		if err != nil {
			return "", false
		}
		computed = sum.String()
	default:
		return "", false
	}
	return computed, computed == d.raw
}

// SHA256 returns the "sha256:<hex>" digest of data.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

var hexAlgorithms = map[int]string{
	32:  "md5",
	40:  "sha1",
	64:  "sha256",
	128: "sha512",
}

func newHexHasher(alg string) hash.Hash {
	switch alg {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha512":
		return sha512.New()
	default:
		return sha256.New()
	}
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
