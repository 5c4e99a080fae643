// Package storage keeps note exports in an object store. MinIO, Google Cloud
// Storage, Amazon S3 and an in-process map are supported.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Bucket is a single bucket on one backend.
type Bucket interface {
	// Ensure creates the bucket when it is missing.
	Ensure(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
}

// Storage is the export store handed to the note service.
type Storage struct {
	bucket Bucket
}

func NewStorage(bucket Bucket) *Storage {
	return &Storage{bucket: bucket}
}

// Put uploads r under key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Put(ctx, key, r, size, contentType); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket.Name(), key, err)
	}
	return nil
}

// Get opens the object at key. The caller closes the reader.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	r, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket.Name(), key, err)
	}
	return r, nil
}

// Bucket returns the bucket name.
func (s *Storage) Bucket() string {
	return s.bucket.Name()
}

// Close releases the backend client if it holds one. Safe on a nil store.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	if c, ok := s.bucket.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// cleanKey rejects empty keys and keys that climb out of their prefix.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return key, nil
}
