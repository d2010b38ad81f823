package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const googMetaPrefix = "x-goog-meta-"

// GCSConfig holds the settings for a Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	// SigningEmail and SigningPrivateKey identify the service account used for
	// V4 signed URLs. When empty the client's own credentials are used.
	SigningEmail      string
	SigningPrivateKey string
}

// GCSStorage implements Driver on top of a GCS bucket.
type GCSStorage struct {
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	bucketName string
	email      string
	privateKey []byte
}

// NewGCSStorage creates a GCS client and verifies the bucket is reachable.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	bkt := client.Bucket(cfg.Bucket)
	if _, err := bkt.Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}

	s := &GCSStorage{
		client:     client,
		bucket:     bkt,
		bucketName: cfg.Bucket,
		email:      cfg.SigningEmail,
	}
	if cfg.SigningPrivateKey != "" {
		// Convert literal \n sequences back into real newlines for the private key.
		s.privateKey = []byte(strings.ReplaceAll(cfg.SigningPrivateKey, `\n`, "\n"))
	}
	return s, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Exists reports whether key is present in the bucket.
func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %q: %w", key, err)
	}
	return true, nil
}

// Stat fetches properties and metadata for key.
func (s *GCSStorage) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return fromGCSAttrs(attrs), nil
}

// Open streams the generation of key that was current when its attributes were read.
func (s *GCSStorage) Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj := s.bucket.Object(key)
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return r, fromGCSAttrs(attrs), nil
}

// OpenRange streams length bytes of key starting at offset.
func (s *GCSStorage) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewRangeReader(ctx, offset, length)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object range %q: %w", key, err)
	}
	return r, nil
}

// Put streams r into a new object. A failed copy cancels the writer so no
// partial object is committed.
func (s *GCSStorage) Put(ctx context.Context, key string, r io.Reader, _ int64, opts PutOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = opts.Metadata

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit object %q: %w", key, err)
	}
	return nil
}

// List enumerates objects under prefix in lexical order.
func (s *GCSStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, err)
		}
		out = append(out, *fromGCSAttrs(attrs))
	}
	return out, nil
}

// Delete removes the object at key.
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// SignUpload generates a V4 signed PUT URL bound to the content type and every
// other header the client must send.
func (s *GCSStorage) SignUpload(_ context.Context, key string, headers map[string]string, ttl time.Duration) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodPut,
		Expires: time.Now().Add(ttl),
	}
	rest := make(map[string]string, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			opts.ContentType = v
			continue
		}
		rest[k] = v
	}
	opts.Headers = canonicalHeaders(rest)
	if s.email != "" {
		opts.GoogleAccessID = s.email
	}
	if len(s.privateKey) > 0 {
		opts.PrivateKey = s.privateKey
	}
	url, err := s.bucket.SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign upload url %q: %w", key, err)
	}
	return url, nil
}

// UploadHeaders returns the headers a direct PUT must carry. The content type is
// part of the signature, so it must match exactly.
func (s *GCSStorage) UploadHeaders(contentType string) map[string]string {
	return map[string]string{"Content-Type": contentType}
}

// MetadataHeader returns the GCS custom-metadata header for name.
func (s *GCSStorage) MetadataHeader(name string) string {
	return googMetaPrefix + name
}

func fromGCSAttrs(attrs *gcs.ObjectAttrs) *ObjectInfo {
	return &ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
		Metadata:     normalizeMetadata(attrs.Metadata, googMetaPrefix),
	}
}
