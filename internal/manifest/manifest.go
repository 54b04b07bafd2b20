// Package manifest parses and validates the remote asset manifest.
//
// Wire format:
//
//	{
//	  "manifestVersion": "2.1.0",
//	  "files": {
//	    "js/app.js": {"hash": "sha256:...", "size": 1024, "contentType": "application/javascript"}
//	  },
//	  "nodes": [
//	    {"path": "js/app.js", "type": "js", "attributes": {"defer": ""}, "optional": false}
//	  ]
//	}
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aweris/assetsync/internal/digest"
)

var (
	ErrUnreachable  = errors.New("manifest: unreachable")
	ErrMalformed    = errors.New("manifest: malformed")
	ErrIncompatible = errors.New("manifest: incompatible version")
)

// Kind is what a node materializes as.
type Kind string

const (
	KindScript     Kind = "script"
	KindStylesheet Kind = "stylesheet"
)

// Entry is a versioned file the cache can hold.
type Entry struct {
	Path        string
	Hash        string // canonical, see digest.Digest.String
	Size        int64
	ContentType string
	// Optional entries may fail to sync without aborting the run. Set from
	// the wire flag, or when every node referencing the path is optional.
	Optional bool
}

// Node is a script or stylesheet to materialize, in manifest order.
type Node struct {
	Path       string
	Kind       Kind
	Attributes map[string]string
	Optional   bool
}

type Manifest struct {
	Version string
	Files   map[string]Entry
	Nodes   []Node
}

// Entries returns the entries for paths, sorted by path. Unknown paths are skipped.
func (m *Manifest) Entries(paths []string) []Entry {
	out := make([]Entry, 0, len(paths))
	for _, p := range paths {
		if e, ok := m.Files[p]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

type wireEntry struct {
	Hash        string `json:"hash"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Optional    bool   `json:"optional"`
}

type wireNode struct {
	Path       string            `json:"path"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Optional   bool              `json:"optional"`
}

var wireKinds = map[string]Kind{
	"js":  KindScript,
	"css": KindStylesheet,
}

// Parse decodes and validates a manifest document. Every failure wraps
// ErrMalformed. The version string is checked for presence only; see
// Resolver for the compatibility gate.
func Parse(data []byte) (*Manifest, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, malformed("decode document: %v", err)
	}

	var version string
	if err := json.Unmarshal(top["manifestVersion"], &version); err != nil || version == "" {
		return nil, malformed("manifestVersion must be a non-empty string")
	}

	rawFiles, ok := top["files"]
	if !ok || !isJSON(rawFiles, '{') {
		return nil, malformed("files must be an object")
	}
	rawNodes, ok := top["nodes"]
	if !ok || !isJSON(rawNodes, '[') {
		return nil, malformed("nodes must be an array")
	}

	var files map[string]wireEntry
	if err := json.Unmarshal(rawFiles, &files); err != nil {
		return nil, malformed("decode files: %v", err)
	}
	var nodes []wireNode
	if err := json.Unmarshal(rawNodes, &nodes); err != nil {
		return nil, malformed("decode nodes: %v", err)
	}

	m := &Manifest{
		Version: version,
		Files:   make(map[string]Entry, len(files)),
		Nodes:   make([]Node, 0, len(nodes)),
	}

	for path, f := range files {
		if path == "" {
			return nil, malformed("file with empty path")
		}
		if f.Size < 0 {
			return nil, malformed("file %s: negative size %d", path, f.Size)
		}
		d, err := digest.Parse(f.Hash)
		if err != nil {
			return nil, malformed("file %s: %v", path, err)
		}
		m.Files[path] = Entry{
			Path:        path,
			Hash:        d.String(),
			Size:        f.Size,
			ContentType: f.ContentType,
			Optional:    f.Optional,
		}
	}

	for i, n := range nodes {
		if n.Path == "" {
			return nil, malformed("node %d: empty path", i)
		}
		kind, ok := wireKinds[n.Type]
		if !ok {
			return nil, malformed("node %d (%s): unknown type %q", i, n.Path, n.Type)
		}
		m.Nodes = append(m.Nodes, Node{
			Path:       n.Path,
			Kind:       kind,
			Attributes: n.Attributes,
			Optional:   n.Optional,
		})
	}

	markOptional(m)
	return m, nil
}

// markOptional flags entries referenced only by optional nodes.
func markOptional(m *Manifest) {
	required := make(map[string]bool)
	for _, n := range m.Nodes {
		if _, ok := m.Files[n.Path]; !ok {
			continue
		}
		required[n.Path] = required[n.Path] || !n.Optional
	}
	for path, req := range required {
		if !req {
			e := m.Files[path]
			e.Optional = true
			m.Files[path] = e
		}
	}
}

func isJSON(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
