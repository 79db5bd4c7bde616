// Package storage persists uploaded blobs (proof-of-delivery photos) and
// returns public URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore saves a blob under bucket/key and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte) (string, error)
}

// FileStore keeps blobs on the local filesystem under dir/bucket/key and
// serves them below publicBaseURL.
type FileStore struct {
	dir           string
	publicBaseURL string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(dir, publicBaseURL string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("empty storage dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes the blob and returns its public URL. Keys are restricted to
// a single path segment per part to keep writes inside the store root.
func (s *FileStore) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if bucket == "" || key == "" {
		return "", errors.New("empty bucket or key")
	}
	if strings.ContainsAny(bucket, `/\`) || strings.ContainsAny(key, `/\`) || bucket == ".." || key == ".." {
		return "", fmt.Errorf("invalid blob path %q/%q", bucket, key)
	}
	bucketDir := filepath.Join(s.dir, bucket)
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}
	path := filepath.Join(bucketDir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.publicBaseURL + "/" + bucket + "/" + key, nil
}
