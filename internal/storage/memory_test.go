package storage

import (
	"context"
	"io"
	"maps"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_PutStatOpen(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	err := s.Put(ctx, "tasks/t1/a.txt", strings.NewReader("hello"), 5, PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"originalName": "a.txt"},
	})
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "tasks/t1/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := s.Stat(ctx, "tasks/t1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.Equal(t, "a.txt", info.Meta("ORIGINALNAME"))
	assert.False(t, info.LastModified.IsZero())

	rc, info2, err := s.Open(ctx, "tasks/t1/a.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, info.Key, info2.Key)
}

func TestMemoryStorage_Missing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	ok, err := s.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Stat(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Open(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotFound)
}

func TestMemoryStorage_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	for _, k := range []string{"tasks/t1/b", "tasks/t1/a", "tasks/t10/c", "tasks/t2/d"} {
		require.NoError(t, s.Put(ctx, k, strings.NewReader("x"), 1, PutOptions{}))
	}

	items, err := s.List(ctx, "tasks/t1/")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "tasks/t1/a", items[0].Key)
	assert.Equal(t, "tasks/t1/b", items[1].Key)
}

func TestMemoryStorage_OpenRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("0123456789"), 10, PutOptions{}))

	rc, err := s.OpenRange(ctx, "k", 2, 3)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "234", string(body))

	rc, err = s.OpenRange(ctx, "k", 8, 100)
	require.NoError(t, err)
	body, _ = io.ReadAll(rc)
	assert.Equal(t, "89", string(body))

	_, err = s.OpenRange(ctx, "k", 10, 1)
	assert.Error(t, err)
}

func TestMemoryStorage_SignAndVerifyUpload(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	headers := map[string]string{"Content-Type": "text/plain"}

	u, err := s.SignUpload(ctx, "tasks/t1/x-a.txt", headers, 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "perm=cw")

	key, err := s.VerifyUpload(u, headers)
	require.NoError(t, err)
	assert.Equal(t, "tasks/t1/x-a.txt", key)

	tampered := strings.Replace(u, "x-a.txt", "x-b.txt", 1)
	_, err = s.VerifyUpload(tampered, headers)
	assert.Error(t, err)

	now = now.Add(6 * time.Minute)
	_, err = s.VerifyUpload(u, headers)
	assert.ErrorContains(t, err, "expired")
}

func TestMemoryStorage_UploadSignatureCoversHeaders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	signed := map[string]string{
		"Content-Type":        "application/pdf",
		"x-meta-taskid":       "t1",
		"x-meta-originalname": "r%C3%A9sum%C3%A9.pdf",
	}

	u, err := s.SignUpload(ctx, "tasks/t1/x-a.pdf", signed, 5*time.Minute)
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "content-type;x-meta-originalname;x-meta-taskid", parsed.Query().Get("signedheaders"))

	// Header names fold case; unsigned extras are tolerated.
	sent := map[string]string{
		"content-type":        "application/pdf",
		"X-Meta-Taskid":       "t1",
		"x-meta-originalname": "r%C3%A9sum%C3%A9.pdf",
		"x-meta-uploadedat":   "2026-02-27T14:48:34.000Z",
	}
	_, err = s.VerifyUpload(u, sent)
	require.NoError(t, err)

	tests := []struct {
		name    string
		edit    func(h map[string]string)
		wantErr string
	}{
		{"missing metadata", func(h map[string]string) { delete(h, "x-meta-taskid") }, "missing signed header"},
		{"changed task", func(h map[string]string) { h["x-meta-taskid"] = "t2" }, "signature mismatch"},
		{"changed content type", func(h map[string]string) { h["Content-Type"] = "text/html" }, "signature mismatch"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := maps.Clone(signed)
			tc.edit(h)
			_, err := s.VerifyUpload(u, h)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNormalizeMetadata(t *testing.T) {
	got := normalizeMetadata(map[string]string{
		"X-Amz-Meta-Originalname": "a.pdf",
		"Taskid":                  "t1",
	}, amzMetaPrefix)
	assert.Equal(t, map[string]string{"originalname": "a.pdf", "taskid": "t1"}, got)
}
