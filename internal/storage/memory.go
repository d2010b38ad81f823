package storage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStorage is an in-process Driver used by tests and local development.
// Objects live only as long as the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject
	secret  []byte
	now     func() time.Time
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &MemoryStorage{
		objects: make(map[string]memObject),
		secret:  secret,
		now:     time.Now,
	}
}

func (s *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStorage) Stat(_ context.Context, key string) (*ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	info := cloneInfo(obj.info)
	return &info, nil
}

func (s *MemoryStorage) Open(_ context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	info := cloneInfo(obj.info)
	return io.NopCloser(bytes.NewReader(obj.data)), &info, nil
}

func (s *MemoryStorage) OpenRange(_ context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	size := int64(len(obj.data))
	if offset < 0 || offset >= size || length <= 0 {
		return nil, fmt.Errorf("invalid range %d+%d for %d-byte object", offset, length, size)
	}
	end := min(offset+length, size)
	return io.NopCloser(bytes.NewReader(obj.data[offset:end])), nil
}

func (s *MemoryStorage) Put(_ context.Context, key string, r io.Reader, _ int64, opts PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{
		data: data,
		info: ObjectInfo{
			Key:          key,
			Size:         int64(len(data)),
			ContentType:  opts.ContentType,
			LastModified: s.now().UTC(),
			Metadata:     normalizeMetadata(opts.Metadata),
		},
	}
	return nil
}

// List returns objects under prefix in lexical key order, like a bucket scan.
func (s *MemoryStorage) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ObjectInfo
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, cloneInfo(obj.info))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

// SignUpload returns an HMAC-signed memory:// URL whose signature also covers
// headers. It is only meaningful to VerifyUpload on the same instance.
func (s *MemoryStorage) SignUpload(_ context.Context, key string, headers map[string]string, ttl time.Duration) (string, error) {
	exp := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	lines := canonicalHeaders(headers)
	q := url.Values{}
	q.Set("perm", "cw")
	q.Set("expires", exp)
	q.Set("signedheaders", headerNames(lines))
	q.Set("sig", s.sign(append([]string{key, "cw", exp}, lines...)...))
	return "memory:///" + key + "?" + q.Encode(), nil
}

// VerifyUpload checks a URL minted by SignUpload against the headers a client
// sent with its write, and returns the key it grants. Every signed header must
// be present with its signed value.
func (s *MemoryStorage) VerifyUpload(raw string, sent map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	q := u.Query()
	exp, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse expiry: %w", err)
	}

	folded := make(map[string]string, len(sent))
	for k, v := range sent {
		folded[strings.ToLower(strings.TrimSpace(k))] = v
	}
	bound := make(map[string]string)
	if names := q.Get("signedheaders"); names != "" {
		for _, name := range strings.Split(names, ";") {
			v, ok := folded[name]
			if !ok {
				return "", fmt.Errorf("missing signed header %q", name)
			}
			bound[name] = v
		}
	}

	want := s.sign(append([]string{key, q.Get("perm"), q.Get("expires")}, canonicalHeaders(bound)...)...)
	if !hmac.Equal([]byte(want), []byte(q.Get("sig"))) {
		return "", fmt.Errorf("signature mismatch")
	}
	if s.now().Unix() > exp {
		return "", fmt.Errorf("upload url expired")
	}
	return key, nil
}

func (s *MemoryStorage) UploadHeaders(contentType string) map[string]string {
	return map[string]string{"Content-Type": contentType}
}

func (s *MemoryStorage) MetadataHeader(name string) string {
	return "x-meta-" + name
}

func (s *MemoryStorage) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func headerNames(lines []string) string {
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i], _, _ = strings.Cut(l, ":")
	}
	return strings.Join(names, ";")
}

func cloneInfo(in ObjectInfo) ObjectInfo {
	out := in
	out.Metadata = make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		out.Metadata[k] = v
	}
	return out
}
