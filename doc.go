// Package tenantcache is a tenant-partitioned, two-tier result-set cache.
//
// Small payloads live in the simple tier, a flat key/value medium with a
// hard byte quota. Payloads at or above the size threshold live in the
// capacity tier, a bbolt file indexed by tenant and write time. Callers see
// one logical cache:
//
//	c, err := tenantcache.Open(ctx, tenantcache.WithCapacityPath("/var/cache/app/capacity.db"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	_ = c.Set(ctx, 42, "ledger-page-1", rows, time.Minute)
//	found, err := c.Get(ctx, 42, "ledger-page-1", &rows)
//
// The cache is an optimization, never a source of truth. The only failures
// that reach callers are [ErrStorageUnavailable] and [ErrStorageFull], plus
// argument and payload encoding errors; everything else becomes a miss.
package tenantcache
