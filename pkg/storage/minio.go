package storage

import (
	"context"
	"errors"
	"fmt"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"io"
)

// MinIO stores recording chunks in a single bucket.
type MinIO struct {
	client *minio.Client
	bucket string
}

func NewMinIO(client *minio.Client, bucket string) *MinIO {
	return &MinIO{
		client: client,
		bucket: bucket,
	}
}

func (m *MinIO) Bucket() string {
	return m.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}

	zerolog.Ctx(ctx).Info().Str("bucket", m.bucket).Msg("creating bucket")
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// PutObject writes the object at key, replacing any previous object there.
func (m *MinIO) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// RemovePrefix deletes every object under prefix.
func (m *MinIO) RemovePrefix(ctx context.Context, prefix string) error {
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var errs []error
	for result := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("remove object %s: %w", result.ObjectName, result.Err))
		}
	}

	return errors.Join(errs...)
}
