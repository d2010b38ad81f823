package attachment

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/radif/attachments/internal/storage"
)

// spyStore counts every store call and lets tests inject failures.
type spyStore struct {
	storage.Driver

	mu    sync.Mutex
	calls []string

	putErr  func(key string) error
	openErr error
	openBody func(data io.ReadCloser) io.ReadCloser
}

func newSpyStore() (*spyStore, *storage.MemoryStorage) {
	mem := storage.NewMemoryStorage()
	return &spyStore{Driver: mem}, mem
}

func (s *spyStore) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
}

func (s *spyStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *spyStore) Exists(ctx context.Context, key string) (bool, error) {
	s.record("exists")
	return s.Driver.Exists(ctx, key)
}

func (s *spyStore) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	s.record("stat")
	return s.Driver.Stat(ctx, key)
}

func (s *spyStore) Open(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	s.record("open")
	if s.openErr != nil {
		return nil, nil, s.openErr
	}
	rc, info, err := s.Driver.Open(ctx, key)
	if err == nil && s.openBody != nil {
		rc = s.openBody(rc)
	}
	return rc, info, err
}

func (s *spyStore) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	s.record("open_range")
	return s.Driver.OpenRange(ctx, key, offset, length)
}

func (s *spyStore) Put(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) error {
	s.record("put")
	if s.putErr != nil {
		if err := s.putErr(key); err != nil {
			return err
		}
	}
	return s.Driver.Put(ctx, key, r, size, opts)
}

func (s *spyStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.record("list")
	return s.Driver.List(ctx, prefix)
}

func (s *spyStore) Delete(ctx context.Context, key string) error {
	s.record("delete")
	return s.Driver.Delete(ctx, key)
}

func (s *spyStore) SignUpload(ctx context.Context, key string, headers map[string]string, ttl time.Duration) (string, error) {
	s.record("sign")
	return s.Driver.SignUpload(ctx, key, headers, ttl)
}

// failingReader yields data and then fails with err.
type failingReader struct {
	data   []byte
	err    error
	closed bool
	mu     sync.Mutex
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (f *failingReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *failingReader) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var errBackend = errors.New("backend unavailable")

// recordingObserver captures attachment events.
type recordingObserver struct {
	mu         sync.Mutex
	slots      int
	uploaded   []int64
	failed     int
	downloaded int64
	deletes    []bool
}

func (o *recordingObserver) UploadSlotIssued() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.slots++
}

func (o *recordingObserver) FileUploaded(n int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.uploaded = append(o.uploaded, n)
}

func (o *recordingObserver) FileUploadFailed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func (o *recordingObserver) BytesDownloaded(n int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.downloaded += n
}

func (o *recordingObserver) AttachmentDeleted(deleted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deletes = append(o.deletes, deleted)
}

const testMaxUpload = 1 << 20

func newTestService(t *testing.T, d storage.Driver, obs Observer) *Service {
	t.Helper()
	return NewService(d, Options{MaxUploadBytes: testMaxUpload, SlotTTL: 5 * time.Minute}, obs)
}

// fixSuffix makes MakeKey deterministic for the duration of a test.
func fixSuffix(t *testing.T, suffix string) {
	t.Helper()
	prev := newSuffix
	newSuffix = func() string { return suffix }
	t.Cleanup(func() { newSuffix = prev })
}
