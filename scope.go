package tenantcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/contextx"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

// Scope is a Cache bound to one company. Code that only ever works for the
// active company takes a Scope and cannot reach another tenant's entries.
type Scope struct {
	c  *Cache
	ns storage.TenantID
}

// ForTenant binds c to ns.
func (c *Cache) ForTenant(ns storage.TenantID) Scope {
	return Scope{c: c, ns: ns}
}

// ScopeFromContext binds c to the company stored by contextx.WithTenant.
func (c *Cache) ScopeFromContext(ctx context.Context) (Scope, error) {
	ns, ok := contextx.TenantFromContext(ctx)
	if !ok {
		return Scope{}, ErrNoTenant
	}
	return c.ForTenant(ns), nil
}

// Namespace returns the bound company.
func (s Scope) Namespace() storage.TenantID { return s.ns }

func (s Scope) Set(ctx context.Context, key string, data any, ttl time.Duration) error {
	return s.c.Set(ctx, s.ns, key, data, ttl)
}

func (s Scope) Get(ctx context.Context, key string, dst any) (bool, error) {
	return s.c.Get(ctx, s.ns, key, dst)
}

func (s Scope) GetRaw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return s.c.GetRaw(ctx, s.ns, key)
}

func (s Scope) Delete(ctx context.Context, key string) error {
	return s.c.Delete(ctx, s.ns, key)
}

// Clear removes every entry of the bound company.
func (s Scope) Clear(ctx context.Context) error {
	return s.c.ClearNamespace(ctx, s.ns)
}
