// Package config loads assetsync settings through viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"
)

const EnvPrefix = "ASSETSYNC"

const (
	BlobStoreFS = "fs"
	BlobStoreKV = "kv"

	KVStoreJSON   = "json"
	KVStoreSQLite = "sqlite"
	KVStoreMemory = "memory"
)

var ErrInvalid = errors.New("config: invalid")

type Retry struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

type Config struct {
	ManifestURL                   string        `mapstructure:"manifest_url"`
	SupportedManifestVersionRange string        `mapstructure:"supported_manifest_version_range"`
	Concurrency                   int           `mapstructure:"concurrency"`
	UseLocalCache                 bool          `mapstructure:"use_local_cache"`
	BaseURL                       string        `mapstructure:"base_url"`
	CacheDir                      string        `mapstructure:"cache_dir"`
	BlobStore                     string        `mapstructure:"blob_store"`
	KVStore                       string        `mapstructure:"kv_store"`
	Compression                   bool          `mapstructure:"compression"`
	CompressionLevel              int           `mapstructure:"compression_level"`
	MemoryCacheSize               int           `mapstructure:"memory_cache_size"`
	Timeout                       time.Duration `mapstructure:"timeout"`
	Retry                         Retry         `mapstructure:"retry"`
}

func Default() Config {
	return Config{
		SupportedManifestVersionRange: "^2.0.0",
		Concurrency:                   5,
		UseLocalCache:                 true,
		CacheDir:                      DefaultCacheDir(),
		BlobStore:                     BlobStoreFS,
		KVStore:                       KVStoreJSON,
		Compression:                   true,
		CompressionLevel:              1,
		MemoryCacheSize:               128,
		Timeout:                       30 * time.Second,
		Retry:                         Retry{Attempts: 1, Backoff: 500 * time.Millisecond},
	}
}

// SetDefaults registers every key with its default, which also lets
// AutomaticEnv resolve them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("manifest_url", d.ManifestURL)
	v.SetDefault("supported_manifest_version_range", d.SupportedManifestVersionRange)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("use_local_cache", d.UseLocalCache)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("blob_store", d.BlobStore)
	v.SetDefault("kv_store", d.KVStore)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("compression_level", d.CompressionLevel)
	v.SetDefault("memory_cache_size", d.MemoryCacheSize)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retry.attempts", d.Retry.Attempts)
	v.SetDefault("retry.backoff", d.Retry.Backoff)
}

// NewViper returns a viper instance with defaults and ASSETSYNC_* env lookup.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// ReadFile points v at path, or at config.yaml in ConfigDir when path is
// empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !(path == "" && errors.As(err, &notFound)) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field. manifest_url may be empty; only
// the sync pipeline requires it.
func (c Config) Validate() error {
	if c.ManifestURL != "" {
		if _, err := url.Parse(c.ManifestURL); err != nil {
			return fmt.Errorf("%w: manifest_url: %v", ErrInvalid, err)
		}
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("%w: base_url: %v", ErrInvalid, err)
		}
	}
	if _, err := semver.NewConstraint(c.SupportedManifestVersionRange); err != nil {
		return fmt.Errorf("%w: supported_manifest_version_range: %v", ErrInvalid, err)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalid, c.Concurrency)
	}
	switch c.BlobStore {
	case BlobStoreFS, BlobStoreKV:
	default:
		return fmt.Errorf("%w: blob_store %q", ErrInvalid, c.BlobStore)
	}
	switch c.KVStore {
	case KVStoreJSON, KVStoreSQLite, KVStoreMemory:
	default:
		return fmt.Errorf("%w: kv_store %q", ErrInvalid, c.KVStore)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 3 {
		return fmt.Errorf("%w: compression_level must be 1..3, got %d", ErrInvalid, c.CompressionLevel)
	}
	if c.MemoryCacheSize < 0 {
		return fmt.Errorf("%w: memory_cache_size %d", ErrInvalid, c.MemoryCacheSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalid, c.Timeout)
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("%w: retry.backoff %s", ErrInvalid, c.Retry.Backoff)
	}
	if c.CacheDir == "" && (c.BlobStore == BlobStoreFS || c.KVStore != KVStoreMemory) {
		return fmt.Errorf("%w: cache_dir is required", ErrInvalid)
	}
	return nil
}

func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "assetsync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "assetsync")
	}
	return ".assetsync"
}

func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "assetsync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "assetsync")
	}
	return ".assetsync"
}
