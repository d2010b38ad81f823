package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Traced wraps a Driver so every store call runs inside a client span.
// Missing objects are not recorded as span errors.
func Traced(d Driver, driverName string) Driver {
	return &tracedDriver{
		next:   d,
		tracer: otel.Tracer("attachments/storage"),
		driver: attribute.String("storage.driver", driverName),
	}
}

type tracedDriver struct {
	next   Driver
	tracer trace.Tracer
	driver attribute.KeyValue
}

func (t *tracedDriver) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.driver, attribute.String("storage.key", key)),
	)
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedDriver) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := t.start(ctx, "exists", key)
	ok, err := t.next.Exists(ctx, key)
	span.SetAttributes(attribute.Bool("storage.exists", ok))
	end(span, err)
	return ok, err
}

func (t *tracedDriver) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	ctx, span := t.start(ctx, "stat", key)
	info, err := t.next.Stat(ctx, key)
	end(span, err)
	return info, err
}

// Open ends its span once the object is opened; the read itself is attributed
// to the caller's span.
func (t *tracedDriver) Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	sctx, span := t.start(ctx, "open", key)
	rc, info, err := t.next.Open(sctx, key)
	if info != nil {
		span.SetAttributes(attribute.Int64("storage.size", info.Size))
	}
	end(span, err)
	return rc, info, err
}

func (t *tracedDriver) OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	sctx, span := t.start(ctx, "open_range", key)
	span.SetAttributes(attribute.Int64("storage.offset", offset), attribute.Int64("storage.length", length))
	rc, err := t.next.OpenRange(sctx, key, offset, length)
	end(span, err)
	return rc, err
}

func (t *tracedDriver) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) error {
	ctx, span := t.start(ctx, "put", key)
	span.SetAttributes(attribute.Int64("storage.size", size), attribute.String("storage.content_type", opts.ContentType))
	err := t.next.Put(ctx, key, r, size, opts)
	end(span, err)
	return err
}

func (t *tracedDriver) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ctx, span := t.start(ctx, "list", prefix)
	out, err := t.next.List(ctx, prefix)
	span.SetAttributes(attribute.Int("storage.count", len(out)))
	end(span, err)
	return out, err
}

func (t *tracedDriver) Delete(ctx context.Context, key string) error {
	ctx, span := t.start(ctx, "delete", key)
	err := t.next.Delete(ctx, key)
	end(span, err)
	return err
}

func (t *tracedDriver) SignUpload(ctx context.Context, key string, headers map[string]string, ttl time.Duration) (string, error) {
	ctx, span := t.start(ctx, "sign_upload", key)
	span.SetAttributes(
		attribute.Int64("storage.ttl_seconds", int64(ttl/time.Second)),
		attribute.Int("storage.signed_headers", len(headers)),
	)
	u, err := t.next.SignUpload(ctx, key, headers, ttl)
	end(span, err)
	return u, err
}

func (t *tracedDriver) UploadHeaders(contentType string) map[string]string {
	return t.next.UploadHeaders(contentType)
}

func (t *tracedDriver) MetadataHeader(name string) string {
	return t.next.MetadataHeader(name)
}
