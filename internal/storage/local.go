package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalProvider writes blobs under a directory on disk.
type LocalProvider struct {
	dir string
}

// NewLocalProvider creates the directory if needed.
func NewLocalProvider(dir string) (*LocalProvider, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create dir %s: %w", dir, err)
	}
	return &LocalProvider{dir: dir}, nil
}

// Save writes data to dir/objectName, creating subdirectories as needed.
func (l *LocalProvider) Save(_ context.Context, objectName string, data []byte) error {
	full := filepath.Join(l.dir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("storage: create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return fmt.Errorf("storage: write %s: %w", objectName, err)
	}
	return nil
}
