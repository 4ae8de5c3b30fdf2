// Package store provides the dedup persistence guard backing the crawl
// engine: an authoritative Postgres store, an optional Redis read-through
// cache in front of it, and an in-memory guard for tests and dry runs.
package store

import (
	"context"
	"sync"

	"github.com/openlex/lexcrawl/internal/crawl"
)

// Memory is an in-process Guard. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records map[string]crawl.Record
}

// NewMemory returns an empty in-memory guard.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]crawl.Record)}
}

// Exists reports whether key has been inserted.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[key]
	return ok, nil
}

// Insert stores rec keyed on its natural key, returning
// crawl.ErrDuplicate if the key is already present.
func (m *Memory) Insert(_ context.Context, rec crawl.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.Key]; ok {
		return crawl.ErrDuplicate
	}
	m.records[rec.Key] = rec
	return nil
}

// Len reports how many records have been inserted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
