package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTraced_SpanPerOperation(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := context.Background()
	d := Traced(NewMemoryStorage(), "memory")

	require.NoError(t, d.Put(ctx, "tasks/t1/a", strings.NewReader("x"), 1, PutOptions{}))
	_, err := d.Stat(ctx, "tasks/t1/missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = d.OpenRange(ctx, "tasks/t1/a", 5, 1)
	require.Error(t, err)
	assert.Equal(t, "x-meta-taskid", d.MetadataHeader("taskid"))

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "storage.put", spans[0].Name())
	assert.Equal(t, "storage.stat", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, "storage.open_range", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
