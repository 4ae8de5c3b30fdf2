package storage

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSProvider implements Provider for Google Cloud Storage.
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSProvider initializes a GCS client and verifies the bucket.
// Authentication uses Google's Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCSProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: create gcs client: %w", err)
	}

	// Fail fast on startup if the bucket is missing or inaccessible.
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("gcs client close failed after attrs check", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("storage: bucket %q attrs: %w", bucket, err)
	}

	return &GCSProvider{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// Save uploads data to the bucket under the configured prefix.
func (g *GCSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	wc := g.client.Bucket(g.bucket).Object(path.Join(g.prefix, objectName)).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			g.logger.Warn("gcs writer close failed after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("storage: write object %s: %w", objectName, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("storage: finalize object %s: %w", objectName, err)
	}
	return nil
}

// Close releases the GCS client.
func (g *GCSProvider) Close() error {
	return g.client.Close()
}
