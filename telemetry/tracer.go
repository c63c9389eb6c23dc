package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	otelCodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/attribute"
	apiTrace "go.opentelemetry.io/otel/trace"
)

// SpanOption adjusts a span's settings at creation time, matching the
// teacher's span-option pattern (otel/span_options.go) trimmed down to
// what the request/reply path needs.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attrs []attribute.KeyValue
	kind  apiTrace.SpanKind
}

// WithAttribute attaches a key/value pair to the span being started.
func WithAttribute(key string, value string) SpanOption {
	return func(c *spanConfig) {
		c.attrs = append(c.attrs, attribute.String(key, value))
	}
}

// WithSpanKind sets the span's kind, default SpanKindInternal.
func WithSpanKind(kind apiTrace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// Tracer wraps an OpenTelemetry tracer, instrumenting
// RequestConsumer.dispatch and Policy.Synchronous.send so a request and
// its reply can be correlated end to end by sn.
type Tracer struct {
	tr apiTrace.Tracer
}

// NewTracer returns a Tracer drawing its spans from the global
// OpenTelemetry provider under the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tr: otel.Tracer(name)}
}

// Span is an in-flight span; call End to close it, passing the error (if
// any) the wrapped operation returned.
type Span struct {
	span apiTrace.Span
	ctx  context.Context
}

// Context returns the span's context, for propagation to nested calls.
func (s *Span) Context() context.Context { return s.ctx }

// End closes the span, marking it as failed when err is non-nil.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(otelCodes.Error, err.Error())
	} else {
		s.span.SetStatus(otelCodes.Ok, "")
	}
	s.span.End()
}

// Start begins a new span named name, tagged with options.
func (t *Tracer) Start(ctx context.Context, name string, options ...SpanOption) *Span {
	cfg := &spanConfig{kind: apiTrace.SpanKindInternal}
	for _, opt := range options {
		opt(cfg)
	}
	ctx, span := t.tr.Start(ctx, name,
		apiTrace.WithSpanKind(cfg.kind),
		apiTrace.WithAttributes(cfg.attrs...),
	)
	return &Span{span: span, ctx: ctx}
}

// Dispatch wraps a RequestConsumer's dispatch of the request carrying sn
// in a span, propagating the outcome's error (if any) onto the span.
func (t *Tracer) Dispatch(ctx context.Context, sn string, fn func(context.Context) error) error {
	sp := t.Start(ctx, "rmi.dispatch", WithAttribute("rmi.sn", sn))
	err := fn(sp.Context())
	sp.End(err)
	return err
}

// Send wraps a Policy.Synchronous.send call carrying sn in a span.
func (t *Tracer) Send(ctx context.Context, sn string, fn func(context.Context) error) error {
	sp := t.Start(ctx, "rmi.send", WithAttribute("rmi.sn", sn), WithSpanKind(apiTrace.SpanKindClient))
	err := fn(sp.Context())
	sp.End(err)
	return err
}
