// Package contextx carries the active company and the request id through a
// context.Context so cache calls made deep inside a handler can find them.
package contextx

import (
	"context"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

// WithTenant returns a derived context whose active company is id. It is
// usually set once, where the user's company selection is resolved.
//
// Example:
//
//	ctx = contextx.WithTenant(ctx, 42)
//	scope, err := cache.ScopeFromContext(ctx)
func WithTenant(ctx context.Context, id storage.TenantID) context.Context {
	return context.WithValue(ctx, tenantKey, id)
}

// TenantFromContext extracts the active company stored in ctx. The boolean
// is false when none was set or the stored id is zero.
func TenantFromContext(ctx context.Context) (storage.TenantID, bool) {
	id, ok := ctx.Value(tenantKey).(storage.TenantID)
	return id, ok && id.Valid()
}
