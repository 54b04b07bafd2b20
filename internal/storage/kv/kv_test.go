package kv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aweris/assetsync/internal/storage"
	"github.com/aweris/assetsync/internal/storage/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunStringStoreConformance(t, func(t *testing.T) storage.StringStore {
		return NewMemory()
	})
}

func TestFile_Conformance(t *testing.T) {
	testkit.RunStringStoreConformance(t, func(t *testing.T) storage.StringStore {
		t.Helper()
		f, err := OpenFile(filepath.Join(t.TempDir(), "kv.json"))
		if err != nil {
			t.Fatalf("OpenFile failed: %v", err)
		}
		return f
	})
}

func TestSQLite_Conformance(t *testing.T) {
	testkit.RunStringStoreConformance(t, func(t *testing.T) storage.StringStore {
		t.Helper()
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFile_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.json")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Set("hash/app.js", "abc"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := reopened.Get("hash/app.js")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestFile_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("hash/app.css", "def"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()

	v, ok, err := reopened.Get("hash/app.css")
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}
