package tenantcache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/simple"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tracing"
)

// Option configures a Cache.
type Option func(*config)

// WithCapacityPath sets the bbolt file backing the capacity tier. Without it
// the capacity tier reports Failed on first use and every write goes to the
// simple tier.
func WithCapacityPath(path string) Option {
	return func(c *config) {
		c.capacityPath = path
	}
}

// WithCapacityOpenTimeout bounds how long opening the capacity file waits
// for its lock.
func WithCapacityOpenTimeout(d time.Duration) Option {
	return func(c *config) {
		c.capacityOpenTimeout = d
	}
}

// WithMemo keeps up to maxCost bytes of decoded capacity entries in memory.
func WithMemo(maxCost int64) Option {
	return func(c *config) {
		c.memoMaxCost = maxCost
	}
}

// WithPrefix sets the simple tier's key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithQuota sets the byte quota of the default in-memory simple medium. It
// has no effect together with WithMedium or WithRedis.
func WithQuota(bytes int) Option {
	return func(c *config) {
		c.quota = bytes
	}
}

// WithMedium replaces the simple tier's medium.
func WithMedium(m simple.Medium) Option {
	return func(c *config) {
		c.medium = m
	}
}

// WithRedis keeps the simple tier in Redis. The server's maxmemory setting
// acts as the quota.
func WithRedis(opts simple.RedisOptions) Option {
	return func(c *config) {
		c.redis = &opts
	}
}

// WithThreshold sets the payload size at and above which entries go to the
// capacity tier.
func WithThreshold(bytes uint64) Option {
	return func(c *config) {
		c.threshold = bytes
	}
}

// WithDefaultTTL sets the ttl used when Set is given ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithSweepInterval sets how often Open's sweeper removes expired entries.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithoutSweeper stops Open from starting the background sweeper.
// CleanupExpired can still be called directly.
func WithoutSweeper() Option {
	return func(c *config) {
		c.noSweeper = true
	}
}

// WithClock replaces the wall clock. Tests use clock.NewMock.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithLogger sets the logger. Components log under named children.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics registers the cache's Prometheus collectors on reg.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	c, err := tenantcache.New(tenantcache.WithMetrics(reg))
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithTracing enables OpenTelemetry spans for every cache operation. When
// cfg.TracerProvider is nil the global provider is used.
func WithTracing(cfg tracing.Config) Option {
	return func(c *config) {
		c.tracing = &cfg
	}
}
