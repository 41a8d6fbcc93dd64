package tenantcache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
	DefaultThreshold     = tier.DefaultThreshold
)

// DefaultCapacityPath returns the capacity file location under the user's
// cache directory, or "" when the platform has none.
func DefaultCapacityPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tenantcache", "capacity.db")
}

// DefaultOptions returns the recommended set of options for production use:
// a capacity file in the user cache directory with a 16 MiB memo.
func DefaultOptions() []Option {
	return []Option{
		WithCapacityPath(DefaultCapacityPath()),
		WithMemo(16 << 20),
	}
}
