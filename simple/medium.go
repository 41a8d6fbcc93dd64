package simple

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// DefaultQuota mirrors the per-origin budget of browser key/value storage.
const DefaultQuota = 5 << 20

var (
	// ErrQuotaExceeded is returned by Medium.Set when the write does not fit.
	ErrQuotaExceeded = errors.New("simple: quota exceeded")

	// ErrMediumUnavailable is returned while a medium refuses all traffic.
	ErrMediumUnavailable = errors.New("simple: medium unavailable")
)

// Medium is the flat, host-global key/value space the simple tier writes
// into. Implementations must be safe for concurrent use.
type Medium interface {
	// Get returns the value under key; the boolean reports presence.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, failing with ErrQuotaExceeded when the
	// medium is out of room. A failed Set leaves any previous value intact.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists every key that starts with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryMedium is an in-process Medium with a strict byte quota counted as
// len(key)+len(value) over all items, including items other components put
// there.
type MemoryMedium struct {
	mu    sync.Mutex
	quota int
	used  int
	items map[string][]byte
}

// NewMemoryMedium returns an empty medium. A quota of zero or less means
// DefaultQuota.
func NewMemoryMedium(quota int) *MemoryMedium {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryMedium{quota: quota, items: make(map[string][]byte)}
}

func (m *MemoryMedium) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryMedium) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used + len(key) + len(value)
	if old, ok := m.items[key]; ok {
		used -= len(key) + len(old)
	}
	if used > m.quota {
		return ErrQuotaExceeded
	}
	m.items[key] = slices.Clone(value)
	m.used = used
	return nil
}

func (m *MemoryMedium) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[key]; ok {
		m.used -= len(key) + len(old)
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryMedium) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Used returns the bytes currently charged against the quota.
func (m *MemoryMedium) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Quota returns the configured byte budget.
func (m *MemoryMedium) Quota() int {
	return m.quota
}
