// Package kv holds the in-memory store and the JSON and per-user scope
// helpers layered over any domain.KVStore.
package kv

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agroloop/agroloop/internal/domain"
)

// Memory is a map-backed domain.KVStore for tests and ephemeral runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites makes every mutation fail; used to exercise storage-error paths.
	FailWrites error
}

var _ domain.KVStore = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte) error {
	return m.Apply([]domain.KVWrite{{Key: key, Value: value}})
}

func (m *Memory) Delete(keys ...string) error {
	writes := make([]domain.KVWrite, len(keys))
	for i, k := range keys {
		writes[i] = domain.KVWrite{Key: k, Delete: true}
	}
	return m.Apply(writes)
}

// Keys lists keys in lexical order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply validates the whole batch before touching the map.
func (m *Memory) Apply(writes []domain.KVWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	for _, w := range writes {
		if w.Key == "" {
			return fmt.Errorf("apply: empty key")
		}
	}
	for _, w := range writes {
		if w.Delete {
			delete(m.data, w.Key)
			continue
		}
		m.data[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}
