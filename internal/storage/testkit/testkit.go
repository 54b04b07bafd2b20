// Package testkit holds conformance suites shared by the storage backends.
package testkit

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aweris/assetsync/internal/storage"
)

// NewBlobStore constructs a fresh, empty BlobStore isolated to one test.
type NewBlobStore func(t *testing.T) storage.BlobStore

// NewStringStore constructs a fresh, empty StringStore isolated to one test.
type NewStringStore func(t *testing.T) storage.StringStore

func RunBlobStoreConformance(t *testing.T, newStore NewBlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := bytes.Repeat([]byte("window.app = {};\n"), 50)

		if err := s.Write(ctx, "js/app.js", want, "application/javascript"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		ok, err := s.Has(ctx, "js/app.js")
		if err != nil || !ok {
			t.Fatalf("Has = %v, %v; want true, nil", ok, err)
		}
		blob, err := s.Read(ctx, "js/app.js")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(blob.Data, want) {
			t.Fatal("Read bytes mismatch")
		}
		if blob.ContentType != "application/javascript" {
			t.Fatalf("content type = %q", blob.ContentType)
		}
	})

	t.Run("ReadMissing", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Has(ctx, "missing.css")
		if err != nil || ok {
			t.Fatalf("Has = %v, %v; want false, nil", ok, err)
		}
		if _, err := s.Read(ctx, "missing.css"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Read err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		if err := s.Write(ctx, "a.css", []byte("v1"), "text/css"); err != nil {
			t.Fatal(err)
		}
		if err := s.Write(ctx, "a.css", []byte("v2"), "text/css"); err != nil {
			t.Fatal(err)
		}
		blob, err := s.Read(ctx, "a.css")
		if err != nil {
			t.Fatal(err)
		}
		if string(blob.Data) != "v2" {
			t.Fatalf("Read = %q, want v2", blob.Data)
		}
	})

	t.Run("RemoveAndList", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"b.js", "a.js", "c/d.css"} {
			if err := s.Write(ctx, p, []byte(p), ""); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Remove(ctx, "b.js"); err != nil {
			t.Fatal(err)
		}
		if err := s.Remove(ctx, "never-written.js"); err != nil {
			t.Fatalf("Remove of absent path: %v", err)
		}

		got, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"a.js", "c/d.css"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("List = %v, want %v", got, want)
		}
		if ok, _ := s.Has(ctx, "b.js"); ok {
			t.Fatal("removed blob still reported by Has")
		}
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		s := newStore(t)
		if err := s.Write(ctx, "empty.js", nil, "application/javascript"); err != nil {
			t.Fatal(err)
		}
		blob, err := s.Read(ctx, "empty.js")
		if err != nil {
			t.Fatal(err)
		}
		if len(blob.Data) != 0 {
			t.Fatalf("expected empty blob, got %d bytes", len(blob.Data))
		}
	})
}

func RunStringStoreConformance(t *testing.T, newStore NewStringStore) {
	t.Helper()

	t.Run("SetGet", func(t *testing.T) {
		s := newStore(t)
		if _, ok, err := s.Get("k"); err != nil || ok {
			t.Fatalf("Get on empty store = %v, %v", ok, err)
		}
		if err := s.Set("k", "v1"); err != nil {
			t.Fatal(err)
		}
		if err := s.Set("k", "v2"); err != nil {
			t.Fatal(err)
		}
		v, ok, err := s.Get("k")
		if err != nil || !ok || v != "v2" {
			t.Fatalf("Get = %q, %v, %v; want v2", v, ok, err)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Set("k", "v"); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 2; i++ {
			if err := s.Delete("k"); err != nil {
				t.Fatalf("Delete #%d: %v", i, err)
			}
		}
		if _, ok, _ := s.Get("k"); ok {
			t.Fatal("deleted key still present")
		}
	})

	t.Run("KeysByPrefix", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"hash/b", "hash/a", "blob/a", "hash%/x"} {
			if err := s.Set(k, "x"); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.Keys("hash/")
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"hash/a", "hash/b"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("Keys = %v, want %v", got, want)
		}
		all, err := s.Keys("")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 4 {
			t.Fatalf("Keys(\"\") returned %d keys, want 4", len(all))
		}
	})
}
