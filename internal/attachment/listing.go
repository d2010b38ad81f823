package attachment

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/radif/attachments/internal/storage"
)

var percentEscape = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// Item is the listing view of one stored attachment, rebuilt on every call.
type Item struct {
	DisplayName    string `json:"name"`
	Key            string `json:"blobName"`
	SizeBytes      int64  `json:"size"`
	ContentType    string `json:"contentType,omitempty"`
	LastModified   string `json:"lastModified,omitempty"`
	UploadedAt     string `json:"uploadedAt,omitempty"`
	UploadedByName string `json:"uploadedByName,omitempty"`
	UploadedByID   string `json:"uploadedById,omitempty"`
}

// ListAttachments enumerates a task's objects in store order.
func (s *Service) ListAttachments(ctx context.Context, taskID string) ([]Item, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	prefix := TaskPrefix(taskID)
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, storeErr("list attachments", err)
	}

	items := make([]Item, 0, len(objects))
	for i := range objects {
		items = append(items, toItem(&objects[i], prefix))
	}
	return items, nil
}

func toItem(o *storage.ObjectInfo, prefix string) Item {
	name := o.Meta(MetaOriginalName)
	if name == "" {
		name = strings.TrimPrefix(o.Key, prefix)
	}
	item := Item{
		DisplayName:    decodeMeta(name),
		Key:            o.Key,
		SizeBytes:      max(o.Size, 0),
		ContentType:    o.ContentType,
		UploadedAt:     normalizeTimestamp(o.Meta(MetaUploadedAt)),
		UploadedByName: decodeMeta(o.Meta(MetaUploadedByName)),
		UploadedByID:   o.Meta(MetaUploadedByID),
	}
	if !o.LastModified.IsZero() {
		item.LastModified = formatTime(o.LastModified)
	}
	return item
}

// displayName resolves the name shown for an object: stored original name,
// else the last path segment of its key.
func displayName(info *storage.ObjectInfo, key string) string {
	if name := info.Meta(MetaOriginalName); name != "" {
		return decodeMeta(name)
	}
	if base := path.Base(key); base != "." && base != "/" {
		return base
	}
	return "file"
}

// decodeMeta undoes writer-side percent-encoding when the value looks encoded.
// A value that fails to decode, or decodes to invalid UTF-8, is returned unchanged.
func decodeMeta(v string) string {
	if v == "" || !percentEscape.MatchString(v) {
		return v
	}
	decoded, err := url.PathUnescape(v)
	if err != nil || !utf8.ValidString(decoded) {
		return v
	}
	return decoded
}

// normalizeTimestamp re-renders a stored instant as ISO-8601 UTC; unparseable
// values are passed through.
func normalizeTimestamp(v string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return v
	}
	return formatTime(t)
}
