package storage

import (
	"context"
	"time"
)

// Store is the contract both cache tiers implement. Stores are dumb
// persistence layers: Get never filters on expiry, that is the caller's job.
type Store interface {
	// Put upserts entry under (ns, key).
	Put(ctx context.Context, ns TenantID, key string, entry Entry) error

	// Get returns the entry stored under (ns, key). The boolean reports
	// whether a record was found; a record that cannot be decoded is removed
	// and reported as a miss.
	Get(ctx context.Context, ns TenantID, key string) (Entry, bool, error)

	// Delete removes (ns, key). Deleting a missing key is not an error.
	Delete(ctx context.Context, ns TenantID, key string) error

	// ClearNamespace removes every entry owned by ns.
	ClearNamespace(ctx context.Context, ns TenantID) error

	// ClearAll removes every entry held by the store.
	ClearAll(ctx context.Context) error

	// SweepExpired removes every entry expired at now and returns how many
	// records were deleted.
	SweepExpired(ctx context.Context, now time.Time) (uint64, error)
}
