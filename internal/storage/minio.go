package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const amzMetaPrefix = "x-amz-meta-"

// MinioConfig holds the connection settings for an S3-compatible backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStorage implements Driver using a MinIO (or any S3-compatible) backend.
// Switching to AWS S3 is a matter of STORAGE_ENDPOINT and credentials.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a MinIO client, ensures the private bucket exists,
// and returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("storage: created bucket")
	}

	return &MinioStorage{client: client, bucket: cfg.Bucket}, nil
}

// Exists reports whether key is present in the bucket.
func (s *MinioStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}
	return true, nil
}

// Stat fetches properties and user metadata for key.
func (s *MinioStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return fromMinioInfo(info), nil
}

// Open streams the whole object. The request is bound to ctx, so cancelling ctx
// tears down the underlying HTTP body.
func (s *MinioStorage) Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %q: %w", key, err)
	}
	// GetObject is lazy; Stat forces the request so a missing key surfaces here.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return obj, fromMinioInfo(info), nil
}

// OpenRange streams length bytes of key starting at offset.
func (s *MinioStorage) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, fmt.Errorf("set range: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("get object range %q: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object range %q: %w", key, err)
	}
	return obj, nil
}

// Put streams r to MinIO under key. size must be the exact byte count
// (-1 makes MinIO buffer the stream).
func (s *MinioStorage) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// List enumerates objects under prefix. Metadata is requested inline; objects the
// backend returns without metadata are stat'ed individually.
func (s *MinioStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, info.Err)
		}
		oi := fromMinioInfo(info)
		if len(oi.Metadata) == 0 {
			full, err := s.Stat(ctx, info.Key)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			if full != nil {
				oi = full
			}
		}
		out = append(out, *oi)
	}
	return out, nil
}

// Delete removes the object at key from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// SignUpload returns a presigned PUT URL with headers in X-Amz-SignedHeaders.
// S3 PUT creates or overwrites, which is exactly create+write.
func (s *MinioStorage) SignUpload(ctx context.Context, key string, headers map[string]string, ttl time.Duration) (string, error) {
	extra := make(http.Header, len(headers))
	for k, v := range headers {
		extra.Set(k, v)
	}
	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, ttl, url.Values{}, extra)
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}
	return u.String(), nil
}

// UploadHeaders returns the headers a direct PUT must carry.
func (s *MinioStorage) UploadHeaders(contentType string) map[string]string {
	return map[string]string{"Content-Type": contentType}
}

// MetadataHeader returns the S3 user-metadata header for name.
func (s *MinioStorage) MetadataHeader(name string) string {
	return amzMetaPrefix + name
}

func fromMinioInfo(info minio.ObjectInfo) *ObjectInfo {
	meta := normalizeMetadata(info.UserMetadata, amzMetaPrefix)
	return &ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     meta,
	}
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
