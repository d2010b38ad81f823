package attachment

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/radif/attachments/internal/storage"
)

// Download is an open object ready to be streamed to a client.
type Download struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Disposition string
	// Size is the number of bytes Body will yield, or -1 when unknown.
	Size int64
}

// Preview is an inline download, possibly restricted to a byte range.
type Preview struct {
	Download
	// ObjectSize is the full object length, used for Content-Range.
	ObjectSize int64
	Partial    bool
	Start, End int64
}

// OpenDownload resolves key and opens its byte stream. A missing object yields
// ErrNotFound before any stream is opened.
func (s *Service) OpenDownload(ctx context.Context, key string, inline bool) (*Download, error) {
	if key == "" {
		return nil, validationf("name query param required")
	}
	if err := s.requireExists(ctx, key); err != nil {
		return nil, err
	}

	// Properties only improve the filename; a failed fetch does not stop the download.
	props, err := s.store.Stat(ctx, key)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("key", key).Msg("fetch attachment properties")
	}

	body, info, err := s.store.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("open attachment", err)
	}
	if props == nil {
		props = info
	}

	name := displayName(props, key)
	size := int64(-1)
	if info != nil && info.Size >= 0 {
		size = info.Size
	}
	return &Download{
		Body:        body,
		Filename:    name,
		ContentType: contentTypeOf(info, props),
		Disposition: ContentDisposition(inline, name),
		Size:        size,
	}, nil
}

// OpenPreview opens key for inline display, honoring a single-span Range header.
// An unsatisfiable range yields a *RangeError carrying the object size.
func (s *Service) OpenPreview(ctx context.Context, key, rangeHeader string) (*Preview, error) {
	if key == "" {
		return nil, validationf("name query param required")
	}
	if err := s.requireExists(ctx, key); err != nil {
		return nil, err
	}
	props, err := s.store.Stat(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("stat attachment", err)
	}

	size := max(props.Size, 0)
	name := displayName(props, key)
	p := &Preview{
		Download: Download{
			Filename:    name,
			ContentType: contentTypeOf(props),
			Disposition: ContentDisposition(true, name),
		},
		ObjectSize: size,
	}

	rng, partial, err := parseRange(rangeHeader, size)
	if err != nil {
		return nil, err
	}
	if partial {
		body, err := s.store.OpenRange(ctx, key, rng.Start, rng.Length())
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, storeErr("open attachment range", err)
		}
		p.Body, p.Size = body, rng.Length()
		p.Partial, p.Start, p.End = true, rng.Start, rng.End
		return p, nil
	}

	body, _, err := s.store.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("open attachment", err)
	}
	p.Body, p.Size = body, size
	return p, nil
}

func (s *Service) requireExists(ctx context.Context, key string) error {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return storeErr("check attachment", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func contentTypeOf(infos ...*storage.ObjectInfo) string {
	for _, info := range infos {
		if info != nil && info.ContentType != "" {
			return info.ContentType
		}
	}
	return defaultContentType
}
