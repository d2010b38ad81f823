// Package tracing configures OpenTelemetry and instruments inbound requests.
package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "attachments"

// Options controls tracing initialization.
type Options struct {
	Enabled     bool
	Endpoint    string  // OTLP/HTTP collector, host:port or URL
	SampleRatio float64 // 0.0 - 1.0
	ServiceName string
}

// Init installs the global tracer provider and propagator. The returned
// function flushes pending spans and must be called on shutdown.
func Init(ctx context.Context, opt Options) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	if !opt.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	svc := strings.TrimSpace(opt.ServiceName)
	if svc == "" {
		svc = defaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(attribute.String("service.name", svc)),
	)
	if err != nil {
		log.Warn().Err(err).Msg("tracing: resource init failed")
		res = resource.Empty()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(opt.SampleRatio)),
	}
	if ep := strings.TrimSpace(opt.Endpoint); ep != "" {
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(ep))}
		if isInsecure(ep) {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(5*time.Second)))
	} else {
		log.Info().Msg("tracing: enabled without endpoint; spans will not be exported")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Middleware starts a server span per request. Health and metrics scrapes are skipped.
func Middleware(next http.Handler) http.Handler {
	skipped := map[string]struct{}{
		"/health":  {},
		"/metrics": {},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := skipped[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := otel.Tracer("attachments/http").Start(ctx, r.Method+" "+r.URL.EscapedPath(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.RequestURI()),
				attribute.Int("http.status_code", status),
				attribute.Int("http.response_size", ww.BytesWritten()),
				attribute.String("user_agent.original", r.UserAgent()),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		}()
		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func isInsecure(endpoint string) bool {
	ep := strings.ToLower(endpoint)
	return strings.HasPrefix(ep, "http://") ||
		strings.Contains(ep, "localhost") || strings.Contains(ep, "127.0.0.1")
}

func stripScheme(endpoint string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if len(endpoint) >= len(scheme) && strings.EqualFold(endpoint[:len(scheme)], scheme) {
			return endpoint[len(scheme):]
		}
	}
	return endpoint
}
