package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/notekeeper/apiserver/config"
)

// MinioBucket is a bucket on a MinIO server.
type MinioBucket struct {
	client *minio.Client
	name   string
}

func NewMinioBucket(cfg config.MinioConfig) (*MinioBucket, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioBucket{client: client, name: cfg.Bucket}, nil
}

func (m *MinioBucket) Ensure(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.name)
	if err != nil || ok {
		return err
	}
	return m.client.MakeBucket(ctx, m.name, minio.MakeBucketOptions{})
}

func (m *MinioBucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.name, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Get stats the object first: GetObject alone defers a missing key error to
// the first Read.
func (m *MinioBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.name, key, minio.GetObjectOptions{})
	if err == nil {
		_, err = obj.Stat()
		if err != nil {
			_ = obj.Close()
		}
	}
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (m *MinioBucket) Name() string {
	return m.name
}
