package manifest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aweris/assetsync/internal/digest"
	"github.com/aweris/assetsync/internal/transport"
)

var (
	hashA = digest.SHA256([]byte("a"))
	hashB = digest.SHA256([]byte("b"))
)

func validDoc() string {
	return `{
		"manifestVersion": "2.1.0",
		"files": {
			"a.js":  {"hash": "` + strings.ToUpper(hashA) + `", "size": 1, "contentType": "application/javascript"},
			"b.css": {"hash": "` + hashB + `", "size": 1, "contentType": "text/css"},
			"lib.js": {"hash": "` + hashA + `", "size": 1, "optional": true}
		},
		"nodes": [
			{"path": "b.css", "type": "css", "optional": true},
			{"path": "a.js", "type": "js", "attributes": {"defer": ""}},
			{"path": "https://cdn.example.com/x.js", "type": "js", "optional": true}
		]
	}`
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(validDoc()))
	if err != nil {
		t.Fatal(err)
	}

	if m.Version != "2.1.0" {
		t.Errorf("version = %q", m.Version)
	}
	if len(m.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(m.Files))
	}
	if got := m.Files["a.js"].Hash; got != hashA {
		t.Errorf("hash not canonicalized: %s", got)
	}

	wantOrder := []string{"b.css", "a.js", "https://cdn.example.com/x.js"}
	for i, n := range m.Nodes {
		if n.Path != wantOrder[i] {
			t.Errorf("node %d = %s, want %s", i, n.Path, wantOrder[i])
		}
	}
	if m.Nodes[0].Kind != KindStylesheet || m.Nodes[1].Kind != KindScript {
		t.Errorf("kinds = %s, %s", m.Nodes[0].Kind, m.Nodes[1].Kind)
	}
	if _, ok := m.Nodes[1].Attributes["defer"]; !ok {
		t.Error("attributes dropped")
	}
}

func TestParse_OptionalEntries(t *testing.T) {
	m, err := Parse([]byte(validDoc()))
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]bool{
		"a.js":   false, // required node
		"b.css":  true,  // only optional nodes
		"lib.js": true,  // explicit wire flag
	}
	for path, want := range tests {
		if got := m.Files[path].Optional; got != want {
			t.Errorf("%s optional = %v, want %v", path, got, want)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"not an object", `[]`},
		{"missing version", `{"files": {}, "nodes": []}`},
		{"numeric version", `{"manifestVersion": 2, "files": {}, "nodes": []}`},
		{"files is array", `{"manifestVersion": "2.0.0", "files": [], "nodes": []}`},
		{"files missing", `{"manifestVersion": "2.0.0", "nodes": []}`},
		{"nodes is object", `{"manifestVersion": "2.0.0", "files": {}, "nodes": {}}`},
		{"nodes null", `{"manifestVersion": "2.0.0", "files": {}, "nodes": null}`},
		{"negative size", `{"manifestVersion": "2.0.0", "files": {"a.js": {"hash": "` + hashA + `", "size": -1}}, "nodes": []}`},
		{"bad hash", `{"manifestVersion": "2.0.0", "files": {"a.js": {"hash": "nope", "size": 1}}, "nodes": []}`},
		{"unknown node type", `{"manifestVersion": "2.0.0", "files": {}, "nodes": [{"path": "a.png", "type": "img"}]}`},
		{"empty node path", `{"manifestVersion": "2.0.0", "files": {}, "nodes": [{"path": "", "type": "js"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestManifest_Entries(t *testing.T) {
	m, err := Parse([]byte(validDoc()))
	if err != nil {
		t.Fatal(err)
	}
	got := m.Entries([]string{"lib.js", "a.js", "unknown.js"})
	if len(got) != 2 || got[0].Path != "a.js" || got[1].Path != "lib.js" {
		t.Fatalf("Entries = %+v", got)
	}
}

func staticTransport(body string, err error) transport.Transport {
	return transport.TransportFunc(func(context.Context, string, transport.ProgressFunc) (*transport.Response, error) {
		if err != nil {
			return nil, err
		}
		return &transport.Response{Body: []byte(body), ContentType: "application/json"}, nil
	})
}

func TestResolver_Resolve(t *testing.T) {
	netErr := &transport.Error{Kind: transport.KindNetwork, URL: "http://x/m.json"}

	tests := []struct {
		name    string
		body    string
		err     error
		rng     string
		wantErr error
	}{
		{"ok", validDoc(), nil, "^2.0.0", nil},
		{"default range", validDoc(), nil, "", nil},
		{"unreachable", "", netErr, "^2.0.0", ErrUnreachable},
		{"malformed", "garbage", nil, "^2.0.0", ErrMalformed},
		{"incompatible major", strings.Replace(validDoc(), "2.1.0", "3.0.0", 1), nil, "^2.0.0", ErrIncompatible},
		{"incompatible minor", validDoc(), nil, "~2.0.0", ErrIncompatible},
		{"unparseable version", strings.Replace(validDoc(), "2.1.0", "two", 1), nil, "^2.0.0", ErrIncompatible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(staticTransport(tt.body, tt.err), tt.rng)
			if err != nil {
				t.Fatal(err)
			}
			m, err := r.Resolve(context.Background(), "http://x/m.json")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if m == nil {
					t.Fatal("nil manifest")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolver_UnreachableKeepsTransportError(t *testing.T) {
	netErr := &transport.Error{Kind: transport.KindTimeout, URL: "http://x/m.json"}
	r, err := NewResolver(staticTransport("", netErr), "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Resolve(context.Background(), "http://x/m.json")
	var te *transport.Error
	if !errors.As(err, &te) || te.Kind != transport.KindTimeout {
		t.Fatalf("err = %v, want wrapped timeout", err)
	}
}

func TestNewResolver_InvalidRange(t *testing.T) {
	if _, err := NewResolver(staticTransport("", nil), "not-a-range"); err == nil {
		t.Fatal("expected error for invalid range")
	}
}
