package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/notekeeper/apiserver/config"
)

const (
	BackendNone   = "none"
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Open builds the export storage for cfg and makes sure its bucket exists.
// It returns nil without error when the backend is "none".
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		bucket Bucket
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendMinio:
		bucket, err = NewMinioBucket(cfg.Minio)
	case BackendGCS:
		bucket, err = NewGCSBucket(ctx, cfg.GCS)
	case BackendS3:
		bucket, err = NewS3Bucket(ctx, cfg.S3)
	case BackendMemory:
		bucket = NewMemoryBucket("memory")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Backend, err)
	}

	if err := bucket.Ensure(ctx); err != nil {
		store := NewStorage(bucket)
		_ = store.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", bucket.Name(), err)
	}
	return NewStorage(bucket), nil
}
