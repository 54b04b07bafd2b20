package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 5 || !cfg.UseLocalCache || cfg.SupportedManifestVersionRange != "^2.0.0" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheDir != filepath.Join("/data", "assetsync") {
		t.Errorf("cache dir = %q", cfg.CacheDir)
	}
	if cfg.Retry.Attempts != 1 || cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ASSETSYNC_CONCURRENCY", "9")
	t.Setenv("ASSETSYNC_USE_LOCAL_CACHE", "false")
	t.Setenv("ASSETSYNC_RETRY_ATTEMPTS", "3")
	t.Setenv("ASSETSYNC_TIMEOUT", "2s")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 9 || cfg.UseLocalCache || cfg.Retry.Attempts != 3 || cfg.Timeout != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
manifest_url: https://cdn.test/app/manifest.json
blob_store: kv
kv_store: sqlite
retry:
  attempts: 4
  backoff: 1s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ManifestURL != "https://cdn.test/app/manifest.json" || cfg.BlobStore != BlobStoreKV || cfg.KVStore != KVStoreSQLite {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Retry.Attempts != 4 || cfg.Retry.Backoff != time.Second {
		t.Errorf("retry = %+v", cfg.Retry)
	}
}

func TestReadFile_MissingDefaultIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := ReadFile(NewViper(), ""); err != nil {
		t.Errorf("ReadFile: %v", err)
	}
}

func TestReadFile_MissingExplicitFails(t *testing.T) {
	if err := ReadFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"range", func(c *Config) { c.SupportedManifestVersionRange = "not-a-range" }},
		{"blob store", func(c *Config) { c.BlobStore = "s3" }},
		{"kv store", func(c *Config) { c.KVStore = "redis" }},
		{"compression level", func(c *Config) { c.CompressionLevel = 7 }},
		{"timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"cache dir", func(c *Config) { c.CacheDir = "" }},
		{"manifest url", func(c *Config) { c.ManifestURL = "http://[::1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.CacheDir = "/tmp/x"
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	cfg := Default()
	cfg.CacheDir = ""
	cfg.BlobStore = BlobStoreKV
	cfg.KVStore = KVStoreMemory
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory-only config rejected: %v", err)
	}
}
