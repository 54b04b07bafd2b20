// Package kv implements storage.StringStore backends.
package kv

import (
	"sort"
	"strings"
	"sync"

	"github.com/aweris/assetsync/internal/storage"
)

var _ storage.StringStore = (*Memory)(nil)

// Memory is a process-local StringStore. Contents are lost on exit.
type Memory struct {
	entries sync.Map
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.entries.Load(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *Memory) Set(key, value string) error {
	m.entries.Store(key, value)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	var keys []string
	m.entries.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }
