// Package otelobs adapts the OpenTelemetry SDK to the
// providers/observability.Provider interface, so pipeline runners can opt
// into OTLP-exported tracing without the core framework importing
// OpenTelemetry directly.
//
// Environment variables read by Init:
//
//	OTEL_EXPORTER_OTLP_ENDPOINT - OTLP/HTTP collector endpoint, used when cfg.Endpoint is empty
//	OTEL_SERVICE_NAME           - overrides cfg.ServiceName whenever set
package otelobs

import (
	"context"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyvi-go/pipeline/providers/observability"
)

// Config configures Init.
type Config struct {
	ServiceName   string
	Endpoint      string // host:port, no scheme; empty falls back to OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure      bool
	SamplingRatio float64 // 0..1; 0 defaults to AlwaysSample
}

// ShutdownFunc flushes and stops the underlying TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init builds an observability.Provider backed by an OTLP/HTTP exporter
// and sets it as the process-wide otel tracer provider. The returned
// Provider's Metrics methods use lightweight in-process counters and
// histograms, and its Logger methods discard every message; no OTel
// metrics or logs pipeline is wired.
func Init(ctx context.Context, cfg Config) (observability.Provider, ShutdownFunc, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	serviceName := cfg.ServiceName
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		serviceName = v
	}
	if serviceName == "" {
		serviceName = "pipeline"
	}

	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, noopShutdown, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		"",
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, noopShutdown, err
	}

	sampler := sdktrace.Sampler(sdktrace.AlwaysSample())
	if cfg.SamplingRatio > 0 && cfg.SamplingRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	provider := &otelProvider{tracer: tp.Tracer(serviceName)}
	shutdown := func(ctx context.Context) error { return tp.Shutdown(ctx) }
	return provider, shutdown, nil
}

// otelProvider implements observability.Provider with OTel-backed tracing,
// trivial in-memory metrics, and no-op logging.
type otelProvider struct {
	tracer trace.Tracer

	mu      sync.Mutex
	counter map[string]*otelCounter
	hist    map[string]*otelHistogram
}

func (p *otelProvider) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, span := p.tracer.Start(ctx, name, trace.WithAttributes(toOtelAttrs(attrs)...))
	return ctx, &otelSpan{span: span}
}

func (p *otelProvider) Counter(name string) observability.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counter == nil {
		p.counter = make(map[string]*otelCounter)
	}
	if c, ok := p.counter[name]; ok {
		return c
	}
	c := &otelCounter{}
	p.counter[name] = c
	return c
}

func (p *otelProvider) Histogram(name string) observability.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hist == nil {
		p.hist = make(map[string]*otelHistogram)
	}
	if h, ok := p.hist[name]; ok {
		return h
	}
	h := &otelHistogram{}
	p.hist[name] = h
	return h
}

func (p *otelProvider) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {}
func (p *otelProvider) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {}
func (p *otelProvider) Info(ctx context.Context, msg string, attrs ...observability.Attribute)  {}
func (p *otelProvider) Warn(ctx context.Context, msg string, attrs ...observability.Attribute)  {}
func (p *otelProvider) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {}

type otelSpan struct{ span trace.Span }

func (s *otelSpan) End() { s.span.End() }
func (s *otelSpan) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(toOtelAttrs(attrs)...)
}
func (s *otelSpan) SetStatus(code observability.StatusCode, description string) {
	s.span.SetStatus(toOtelStatus(code), description)
}
func (s *otelSpan) RecordError(err error) { s.span.RecordError(err) }
func (s *otelSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOtelAttrs(attrs)...))
}

type otelCounter struct {
	mu    sync.Mutex
	total int64
}

func (c *otelCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.mu.Lock()
	c.total += value
	c.mu.Unlock()
}

type otelHistogram struct {
	mu      sync.Mutex
	samples []float64
}

func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.mu.Lock()
	h.samples = append(h.samples, value)
	h.mu.Unlock()
}

func toOtelAttrs(attrs []observability.Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case time.Duration:
			out = append(out, attribute.Int64(a.Key, v.Milliseconds()))
		default:
			out = append(out, attribute.String(a.Key, "unsupported"))
		}
	}
	return out
}

func toOtelStatus(code observability.StatusCode) codes.Code {
	switch code {
	case observability.StatusOK:
		return codes.Ok
	case observability.StatusError:
		return codes.Error
	default:
		return codes.Unset
	}
}
