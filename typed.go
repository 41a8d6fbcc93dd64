package tenantcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

// Typed is a view of a Cache that encodes and decodes values of type T.
//
//	pages := tenantcache.NewTyped[[]LedgerRow](c)
//	rows, ok, err := pages.Get(ctx, 42, "ledger-page-1")
type Typed[T any] struct {
	c *Cache
}

// NewTyped returns a typed view of c.
func NewTyped[T any](c *Cache) Typed[T] {
	return Typed[T]{c: c}
}

func (t Typed[T]) Set(ctx context.Context, ns storage.TenantID, key string, v T, ttl time.Duration) error {
	return t.c.Set(ctx, ns, key, v, ttl)
}

func (t Typed[T]) Get(ctx context.Context, ns storage.TenantID, key string) (T, bool, error) {
	var v T
	ok, err := t.c.Get(ctx, ns, key, &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// GetOrLoad returns the cached value or calls load, caching its result for
// ttl. Concurrent callers for the same key share one load.
func (t Typed[T]) GetOrLoad(ctx context.Context, ns storage.TenantID, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := validate(ns, key); err != nil {
		return zero, err
	}
	raw, err := t.c.getOrLoad(ctx, ns, key, ttl, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("tenantcache: decode %q: %w", key, err)
	}
	return v, nil
}
