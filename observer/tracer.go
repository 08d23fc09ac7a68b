package observer

import (
	"context"
	"fmt"

	"github.com/nevindra/medcopy"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer returns a medcopy.Tracer backed by the global OTEL TracerProvider.
// Call Init first to configure the provider; otherwise spans go to a no-op
// backend.
func NewTracer() medcopy.Tracer {
	return NewTracerFrom(otel.GetTracerProvider())
}

// NewTracerFrom returns a medcopy.Tracer backed by tp.
func NewTracerFrom(tp trace.TracerProvider) medcopy.Tracer {
	return batchTracer{inner: tp.Tracer(scopeName)}
}

type batchTracer struct {
	inner trace.Tracer
}

func (t batchTracer) Start(ctx context.Context, name string, attrs ...medcopy.SpanAttr) (context.Context, medcopy.Span) {
	ctx, span := t.inner.Start(ctx, name, trace.WithAttributes(toOTELAttrs(attrs)...))
	return ctx, batchSpan{inner: span}
}

type batchSpan struct {
	inner trace.Span
}

func (s batchSpan) SetAttr(attrs ...medcopy.SpanAttr) { s.inner.SetAttributes(toOTELAttrs(attrs)...) }

func (s batchSpan) Event(name string, attrs ...medcopy.SpanAttr) {
	s.inner.AddEvent(name, trace.WithAttributes(toOTELAttrs(attrs)...))
}

func (s batchSpan) Error(err error) {
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}

func (s batchSpan) End() { s.inner.End() }

func toOTELAttrs(attrs []medcopy.SpanAttr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		out[i] = toOTELAttr(a)
	}
	return out
}

func toOTELAttr(a medcopy.SpanAttr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprintf("%v", v))
	}
}

var (
	_ medcopy.Tracer = batchTracer{}
	_ medcopy.Span   = batchSpan{}
)
