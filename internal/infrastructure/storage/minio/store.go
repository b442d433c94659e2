// Package minio provides object storage for uploaded corpus files and
// assembled document bundles.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is the storage capability used by the corpus and document
// services.  Implementations must be safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Remove(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

type store struct {
	client *minio.Client
	logger logging.Logger
}

// NewStore connects to MinIO and ensures the platform buckets exist.
func NewStore(ctx context.Context, cfg config.MinIOConfig, logger logging.Logger) (ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to create object storage client")
	}

	s := &store{client: client, logger: logger.Named("minio")}
	for _, bucket := range []string{cfg.CorpusBucket, cfg.OutputBucket} {
		if err := s.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *store) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to check bucket").WithDetail("bucket=" + bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to create bucket").WithDetail("bucket=" + bucket)
	}
	s.logger.Info("bucket created", logging.String("bucket", bucket))
	return nil
}

func (s *store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to store object").WithDetail("key=" + key)
	}
	return nil
}

func (s *store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to open object").WithDetail("key=" + key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to read object").WithDetail("key=" + key)
	}
	return data, nil
}

func (s *store) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, apperrors.Wrap(obj.Err, apperrors.ErrCodeDocumentStoreError,
				"failed to list objects")
		}
		infos = append(infos, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}

func (s *store) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to remove object").WithDetail("key=" + key)
	}
	return nil
}

func (s *store) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDocumentStoreError,
			"failed to presign object").WithDetail("key=" + key)
	}
	return u.String(), nil
}
