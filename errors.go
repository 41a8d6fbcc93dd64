package tenantcache

import (
	"errors"
	"fmt"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

var (
	// ErrStorageUnavailable means a tier could not be used at all.
	ErrStorageUnavailable = storage.ErrUnavailable

	// ErrStorageFull means a write did not fit even after reclaiming
	// expired entries.
	ErrStorageFull = storage.ErrFull

	ErrInvalidNamespace = errors.New("tenantcache: namespace must be non-zero")
	ErrEmptyKey         = errors.New("tenantcache: key must not be empty")

	// ErrNoTenant is returned by ScopeFromContext when the context carries no
	// active company.
	ErrNoTenant = errors.New("tenantcache: no active tenant in context")
)

func validate(ns storage.TenantID, key string) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// unavailable tags a raw medium failure so callers can match it.
func unavailable(err error) error {
	if err == nil || errors.Is(err, storage.ErrUnavailable) || errors.Is(err, storage.ErrFull) {
		return err
	}
	return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
}
