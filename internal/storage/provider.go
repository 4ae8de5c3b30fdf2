// Package storage archives extracted records as JSON blobs. The archive
// is best-effort: the relational store stays the source of truth and
// archive failures never fail the crawl.
package storage

import "context"

// Provider persists a named blob.
type Provider interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards everything. Used when archiving is disabled.
type NoOpProvider struct{}

// NewNoOpProvider returns the discard provider.
func NewNoOpProvider() *NoOpProvider { return &NoOpProvider{} }

// Save does nothing.
func (*NoOpProvider) Save(context.Context, string, []byte) error { return nil }
