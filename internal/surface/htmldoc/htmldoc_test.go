package htmldoc

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/aweris/assetsync/internal/apply"
	"github.com/aweris/assetsync/internal/compression"
	"github.com/aweris/assetsync/internal/manifest"
	"github.com/aweris/assetsync/internal/storage/kv"
	"github.com/aweris/assetsync/internal/storage/kvblob"
)

func headChildren(t *testing.T, doc string) []*html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	var head *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "head" {
			head = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	if head == nil {
		t.Fatalf("no head in %s", doc)
	}

	var out []*html.Node
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestDocument_RendersAppliedNodesInOrder(t *testing.T) {
	ctx := context.Background()
	c, err := compression.NewCompressor(0, false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	blobs := kvblob.New(kv.NewMemory(), c)
	_ = blobs.Write(ctx, "vendor.js", []byte("var v = 1 < 2;"), "application/javascript")
	_ = blobs.Write(ctx, "theme.css", []byte("body{color:red}"), "text/css")

	var loaded []string
	doc := New(func(ref string) error {
		loaded = append(loaded, ref)
		return nil
	})
	nodes := []manifest.Node{
		{Path: "vendor.js", Kind: manifest.KindScript},
		{Path: "theme.css", Kind: manifest.KindStylesheet},
		{Path: "https://cdn.test/app.js", Kind: manifest.KindScript, Attributes: map[string]string{"defer": ""}},
		{Path: "https://cdn.test/print.css", Kind: manifest.KindStylesheet, Attributes: map[string]string{"media": "print"}},
	}
	if _, err := apply.New(doc, blobs, apply.Options{}).Apply(ctx, nodes); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "<!DOCTYPE html>") {
		t.Errorf("missing doctype: %s", buf.String())
	}

	els := headChildren(t, buf.String())
	if len(els) != 4 {
		t.Fatalf("head has %d elements: %s", len(els), buf.String())
	}
	if els[0].Data != "script" || els[0].FirstChild == nil || els[0].FirstChild.Data != "var v = 1 < 2;" {
		t.Errorf("inline script = %s", buf.String())
	}
	if els[1].Data != "style" || els[1].FirstChild.Data != "body{color:red}" {
		t.Errorf("inline style = %s", buf.String())
	}
	if els[2].Data != "script" || attr(els[2], "src") != "https://cdn.test/app.js" {
		t.Errorf("remote script = %s", buf.String())
	}
	if els[3].Data != "link" || attr(els[3], "href") != "https://cdn.test/print.css" || attr(els[3], "media") != "print" {
		t.Errorf("remote stylesheet = %s", buf.String())
	}
	if strings.Join(loaded, " ") != "https://cdn.test/app.js https://cdn.test/print.css" {
		t.Errorf("loaded = %v", loaded)
	}
}

func TestDocument_LoadErrorFailsNode(t *testing.T) {
	doc := New(func(string) error { return errors.New("unreachable") })
	_, err := apply.New(doc, nil, apply.Options{}).Apply(context.Background(), []manifest.Node{
		{Path: "https://cdn.test/app.js", Kind: manifest.KindScript},
	})

	var nle *apply.NodeLoadError
	if !errors.As(err, &nle) {
		t.Fatalf("err = %v, want NodeLoadError", err)
	}
}
