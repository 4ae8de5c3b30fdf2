// Package queue notifies downstream consumers about newly persisted
// records. Like the archive, notification is best-effort and never
// fails the crawl.
package queue

import (
	"context"
	"sync"
)

// Publisher announces a record's natural key after a successful insert.
type Publisher interface {
	Publish(ctx context.Context, key string) error
	Close() error
}

// NoOpPublisher discards everything. Used when notifications are
// disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher returns the discard publisher.
func NewNoOpPublisher() *NoOpPublisher { return &NoOpPublisher{} }

// Publish does nothing.
func (*NoOpPublisher) Publish(context.Context, string) error { return nil }

// Close does nothing.
func (*NoOpPublisher) Close() error { return nil }

// MemoryPublisher accumulates keys in memory. Used in tests and dry
// runs.
type MemoryPublisher struct {
	mu   sync.Mutex
	keys []string
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

// Publish records the key.
func (m *MemoryPublisher) Publish(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

// Close does nothing.
func (m *MemoryPublisher) Close() error { return nil }

// Published returns a copy of the keys published so far.
func (m *MemoryPublisher) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}
