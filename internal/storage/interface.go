// Package storage mirrors raw batches to S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of object storage operations the raw archive
// mirror needs.
type ObjectStorage interface {
	// Upload writes an object, replacing any existing one under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}
