// Package tracing provides OpenTelemetry spans for cache operations. It is
// entirely optional: tracing is only active when a [Config] is wired in via
// the WithTracing cache option.
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/contextx"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

const instrumentationName = "github.com/Ants-develop/MultiTenantAccounting-sub002/tracing"

// Attribute keys set on cache spans.
const (
	AttrOperation = attribute.Key("cache.operation")
	AttrNamespace = attribute.Key("cache.namespace")
	AttrKey       = attribute.Key("cache.key")
	AttrTier      = attribute.Key("cache.tier")
	AttrHit       = attribute.Key("cache.hit")
	AttrBytes     = attribute.Key("cache.bytes")
	AttrRemoved   = attribute.Key("cache.removed")
	AttrRequestID = attribute.Key("request.id")
)

// Config holds the OpenTelemetry configuration used by the cache.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
}

func (c *Config) tracer() trace.Tracer {
	if c == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// Start opens a span named "tenantcache.<op>". A nil cfg returns a
// non-recording span so callers never need to branch.
func Start(ctx context.Context, cfg *Config, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, AttrOperation.String(op))
	if id := contextx.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, AttrRequestID.String(id))
	}
	return cfg.tracer().Start(ctx, "tenantcache."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// Namespace returns the namespace attribute.
func Namespace(ns storage.TenantID) attribute.KeyValue {
	return AttrNamespace.Int64(int64(ns))
}

// Key returns the key attribute.
func Key(k string) attribute.KeyValue {
	return AttrKey.String(k)
}

// Tier returns the tier attribute.
func Tier(t tier.Tier) attribute.KeyValue {
	return AttrTier.String(t.String())
}

// End records err on span and ends it. Misses are not errors.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorClass(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, storage.ErrFull):
		return "storage full"
	case errors.Is(err, storage.ErrUnavailable):
		return "storage unavailable"
	default:
		return err.Error()
	}
}
