// Package tracer keeps OpenTelemetry behind a two-method interface so
// services start spans without touching the OTel API.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	dErrors "idmcore/pkg/domain-errors"
)

type Attribute = attribute.KeyValue

func String(key, value string) Attribute      { return attribute.String(key, value) }
func Bool(key string, value bool) Attribute   { return attribute.Bool(key, value) }
func Int64(key string, value int64) Attribute { return attribute.Int64(key, value) }

// Span is an active span. End must be called exactly once; a non-nil err
// marks the span failed and records the error's domain code.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans and is safe for concurrent use.
//
//	ctx, span := t.Start(ctx, "enquiry.accept", tracer.String("response_id", id))
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type OTel struct {
	tracer trace.Tracer
}

type Option func(*OTel)

// WithOTelTracer replaces the tracer taken from the global provider.
func WithOTelTracer(t trace.Tracer) Option {
	return func(o *OTel) {
		o.tracer = t
	}
}

// NewOTel traces under the instrumentation scope "idmcore/<scope>".
func NewOTel(scope string, opts ...Option) *OTel {
	o := &OTel{}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("idmcore/" + scope)
	}
	return o
}

// NewNoop discards every span. Services use it when no tracer is configured.
func NewNoop() *OTel {
	return NewOTel("noop", WithOTelTracer(noop.NewTracerProvider().Tracer("")))
}

func (o *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.Span.SetAttributes(attribute.String("error.code", string(dErrors.CodeOf(err))))
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	} else {
		s.Span.SetStatus(codes.Ok, "")
	}
	s.Span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.Span.SetAttributes(attrs...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.Span.AddEvent(name, trace.WithAttributes(attrs...))
}

// HashIdentifier returns a short stable digest of a user identifier so
// spans correlate without carrying it.
func HashIdentifier(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
