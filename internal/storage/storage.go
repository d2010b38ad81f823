// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup:
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3),
// the GCS implementation with Google Cloud Storage, and the memory implementation
// backs tests and local development.
//
// A Storage value is a long-lived handle created once at startup. Every
// implementation is safe for concurrent use by many requests.
package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object without its content.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	// Metadata holds user metadata with lower-cased keys.
	Metadata map[string]string
}

// Meta returns the metadata value for name, matching keys case-insensitively.
func (o *ObjectInfo) Meta(name string) string {
	if o == nil || o.Metadata == nil {
		return ""
	}
	return o.Metadata[strings.ToLower(name)]
}

// PutOptions carries the HTTP properties and metadata attached at write time.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Storage is the interface for reading, writing and enumerating objects.
type Storage interface {
	// Exists reports whether an object is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Stat fetches object properties and metadata.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Open returns a streaming reader over the whole object. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	// OpenRange returns a streaming reader over length bytes starting at offset.
	OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
	// Put streams data to the store under the given key. size is -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error
	// List enumerates all objects whose key starts with prefix, in store order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Delete removes an object and its metadata in a single operation.
	Delete(ctx context.Context, key string) error
}

// UploadSigner mints time-limited URLs that let a client write one object directly.
type UploadSigner interface {
	// SignUpload returns a URL permitting create+write of key until now+ttl.
	// Every entry of headers is bound into the signature; the client must send
	// them verbatim. headers normally comes from UploadHeaders plus metadata.
	SignUpload(ctx context.Context, key string, headers map[string]string, ttl time.Duration) (string, error)
	// UploadHeaders returns headers a client must send with its direct write, and
	// the header name used to carry a metadata entry.
	UploadHeaders(contentType string) map[string]string
	MetadataHeader(name string) string
}

// Driver is a store that can also mint delegated upload URLs.
type Driver interface {
	Storage
	UploadSigner
}

// normalizeMetadata lower-cases keys and strips transport prefixes such as
// "X-Amz-Meta-" that some listing APIs leave in place.
func normalizeMetadata(in map[string]string, prefixes ...string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		lk := strings.ToLower(k)
		for _, p := range prefixes {
			lk = strings.TrimPrefix(lk, p)
		}
		out[lk] = v
	}
	return out
}

// canonicalHeaders renders headers as sorted "name:value" lines with lower-cased
// names, the form signers bind into a signature.
func canonicalHeaders(headers map[string]string) []string {
	out := make([]string, 0, len(headers))
	for k, v := range headers {
		out = append(out, strings.ToLower(strings.TrimSpace(k))+":"+strings.TrimSpace(v))
	}
	sort.Strings(out)
	return out
}
