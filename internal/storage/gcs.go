package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/notekeeper/apiserver/config"
)

// GCSBucket is a Google Cloud Storage bucket.
type GCSBucket struct {
	client    *storage.Client
	handle    *storage.BucketHandle
	projectID string
}

func NewGCSBucket(ctx context.Context, cfg config.GCSConfig) (*GCSBucket, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSBucket{
		client:    client,
		handle:    client.Bucket(cfg.Bucket),
		projectID: cfg.ProjectID,
	}, nil
}

// Ensure creates the bucket under projectID when it does not exist yet.
func (g *GCSBucket) Ensure(ctx context.Context) error {
	_, err := g.handle.Attrs(ctx)
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if g.projectID == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.handle.Create(ctx, g.projectID, nil)
}

func (g *GCSBucket) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.handle.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	return r, err
}

func (g *GCSBucket) Name() string {
	return g.handle.BucketName()
}

func (g *GCSBucket) Close() error {
	return g.client.Close()
}
