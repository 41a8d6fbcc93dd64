// Package storage holds the record type, the store contract and the error
// taxonomy shared by both cache tiers.
package storage

import (
	"encoding/json"
	"strconv"
	"time"
)

// TenantID identifies the company that owns a cache entry. Entries are
// partitioned by TenantID and never shared across tenants. Zero means "no
// active company" and is rejected by every operation.
type TenantID int64

// String renders the id the way it appears in store keys.
func (t TenantID) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Valid reports whether t can own entries.
func (t TenantID) Valid() bool {
	return t != 0
}

// Entry is the unit of storage. Timestamps are unix milliseconds.
type Entry struct {
	Data      json.RawMessage `json:"data" msgpack:"data"`
	Namespace TenantID        `json:"namespace" msgpack:"namespace"`
	WrittenAt int64           `json:"writtenAt" msgpack:"writtenAt"`
	ExpiresAt int64           `json:"expiresAt" msgpack:"expiresAt"`
}

// NewEntry stamps data for namespace at now with the given ttl.
func NewEntry(data json.RawMessage, ns TenantID, now time.Time, ttl time.Duration) Entry {
	written := now.UnixMilli()
	return Entry{
		Data:      data,
		Namespace: ns,
		WrittenAt: written,
		ExpiresAt: written + ttl.Milliseconds(),
	}
}

// Expired reports whether the entry is logically absent at now. An entry is
// expired from the instant now reaches ExpiresAt.
func (e Entry) Expired(now time.Time) bool {
	return now.UnixMilli() >= e.ExpiresAt
}

// Size returns the serialized payload size used for tier selection.
func (e Entry) Size() uint64 {
	return uint64(len(e.Data))
}
