package tracing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/contextx"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

// newTestConfig returns a Config backed by an in-memory span recorder.
func newTestConfig(t *testing.T) (*Config, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return &Config{TracerProvider: tp}, rec
}

func TestStart_CreatesSpan(t *testing.T) {
	cfg, rec := newTestConfig(t)
	ctx := contextx.WithRequestID(t.Context(), "req-7")

	_, span := Start(ctx, cfg, "Get", Namespace(42), Key("ledger-page-1"), Tier(tier.Capacity))
	End(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "tenantcache.Get" {
		t.Fatalf("expected span name %q, got %q", "tenantcache.Get", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Fatalf("expected SpanKindInternal, got %v", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Fatalf("expected Ok status, got %v", s.Status().Code)
	}

	assertAttr(t, s.Attributes(), "cache.operation", "Get")
	assertAttr(t, s.Attributes(), "cache.key", "ledger-page-1")
	assertAttr(t, s.Attributes(), "cache.tier", "capacity")
	assertAttr(t, s.Attributes(), "request.id", "req-7")
	assertInt(t, s.Attributes(), "cache.namespace", 42)
}

func TestEnd_RecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)

	_, span := Start(t.Context(), cfg, "Set")
	End(span, fmt.Errorf("%w: simple tier", storage.ErrFull))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", s.Status().Code)
	}
	if s.Status().Description != "storage full" {
		t.Fatalf("unexpected description %q", s.Status().Description)
	}
	if len(s.Events()) == 0 {
		t.Fatal("expected an exception event")
	}
}

func TestStart_NilConfigIsNoop(t *testing.T) {
	ctx, span := Start(t.Context(), nil, "Delete")
	if span.IsRecording() {
		t.Fatal("nil config should yield a non-recording span")
	}
	if ctx == nil {
		t.Fatal("expected a context")
	}
	End(span, errors.New("ignored"))
}

func assertAttr(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if got := a.Value.AsString(); got != want {
				t.Fatalf("attr %s: got %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Fatalf("attr %s not found", key)
}

func assertInt(t *testing.T, attrs []attribute.KeyValue, key string, want int64) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if got := a.Value.AsInt64(); got != want {
				t.Fatalf("attr %s: got %d, want %d", key, got, want)
			}
			return
		}
	}
	t.Fatalf("attr %s not found", key)
}
