// Package htmldoc is an apply.Surface that assembles an HTML document.
//
// Cached nodes are inlined as <script> or <style> text. Remote nodes become
// <script src> or <link rel=stylesheet href> and report load or error from
// the LoadFunc.
package htmldoc

import (
	"io"
	"sort"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/aweris/assetsync/internal/apply"
	"github.com/aweris/assetsync/internal/manifest"
)

// LoadFunc checks that ref can be loaded. A nil LoadFunc loads everything.
type LoadFunc func(ref string) error

var _ apply.Surface = (*Document)(nil)

type Document struct {
	mu   sync.Mutex
	root *html.Node
	head *html.Node
	load LoadFunc
}

func New(load LoadFunc) *Document {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html)
	head := element(atom.Head)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(element(atom.Body))
	root.AppendChild(htmlEl)

	return &Document{root: root, head: head, load: load}
}

type node struct {
	kind    manifest.Kind
	attrs   map[string]string
	content []byte
	inline  bool
	onLoad  func()
	onError func(error)
}

func (n *node) SetContent(data []byte) {
	n.content = data
	n.inline = true
}

func (n *node) OnLoad(fn func())       { n.onLoad = fn }
func (n *node) OnError(fn func(error)) { n.onError = fn }

func (d *Document) CreateNode(kind manifest.Kind, attrs map[string]string) (apply.Element, error) {
	return &node{kind: kind, attrs: attrs}, nil
}

func (d *Document) Append(el apply.Element) error {
	n := el.(*node)

	var h *html.Node
	switch {
	case n.inline && n.kind == manifest.KindStylesheet:
		h = element(atom.Style)
		h.AppendChild(&html.Node{Type: html.TextNode, Data: string(n.content)})
	case n.inline:
		h = element(atom.Script)
		h.AppendChild(&html.Node{Type: html.TextNode, Data: string(n.content)})
	case n.kind == manifest.KindStylesheet:
		h = element(atom.Link)
	default:
		h = element(atom.Script)
	}
	h.Attr = attributes(n.attrs, n.inline)

	d.mu.Lock()
	d.head.AppendChild(h)
	d.mu.Unlock()

	if !n.inline {
		ref := n.attrs["src"]
		if n.kind == manifest.KindStylesheet {
			ref = n.attrs["href"]
		}
		go d.signal(n, ref)
	}
	return nil
}

func (d *Document) signal(n *node, ref string) {
	var err error
	if d.load != nil {
		err = d.load(ref)
	}
	switch {
	case err != nil && n.onError != nil:
		n.onError(err)
	case err == nil && n.onLoad != nil:
		n.onLoad()
	}
}

// Render writes the document.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// attributes renders attrs in key order. Inline nodes drop src and href.
func attributes(attrs map[string]string, inline bool) []html.Attribute {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if inline && (k == "src" || k == "href") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]html.Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, html.Attribute{Key: k, Val: attrs[k]})
	}
	return out
}
