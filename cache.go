package tenantcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/capacity"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/metrics"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/ratelimit"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/simple"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/sweeper"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tracing"
)

const lockStripes = 64

// Cache is one logical cache over the simple and capacity tiers. It is safe
// for concurrent use by multiple goroutines.
//
// Writes of the same (namespace, key) are serialized; a key lives in at most
// one tier at a time.
type Cache struct {
	cfg      config
	selector tier.Selector
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Collectors
	tracing  *tracing.Config

	capacity *capacity.Store
	simple   *simple.Store
	sweeper  *sweeper.Sweeper

	// degraded throttles warnings about writes diverted off the capacity
	// tier; once it is down every large write would log otherwise.
	degraded *ratelimit.Limiter
	loads    singleflight.Group
	locks    [lockStripes]sync.Mutex

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New builds a Cache without touching any storage. The capacity tier opens
// on first use.
//
// Example:
//
//	c, err := tenantcache.New(
//		tenantcache.WithCapacityPath(path),
//		tenantcache.WithLogger(logger),
//	)
func New(opts ...Option) (*Cache, error) {
	cfg := newConfig(opts)

	m, err := metrics.New(cfg.registry)
	if err != nil {
		return nil, fmt.Errorf("tenantcache: register metrics: %w", err)
	}

	c := &Cache{
		cfg:      cfg,
		selector: tier.Selector{Threshold: cfg.threshold},
		clock:    cfg.clock,
		log:      cfg.logger,
		metrics:  m,
		tracing:  cfg.tracing,
		degraded: ratelimit.NewLimiter(time.Minute, 1, cfg.clock),
	}

	medium := cfg.medium
	if medium == nil && cfg.redis != nil {
		ro := *cfg.redis
		if ro.Breaker.Clock == nil {
			ro.Breaker.Clock = cfg.clock
		}
		r := simple.NewRedisMedium(ro)
		c.closers = append(c.closers, r.Close)
		medium = r
	}
	if medium == nil {
		medium = simple.NewMemoryMedium(cfg.quota)
	}

	c.simple = simple.New(medium, simple.Options{
		Prefix:  cfg.prefix,
		Clock:   cfg.clock,
		Logger:  cfg.logger.Named("simple"),
		Metrics: m,
	})
	c.capacity = capacity.New(capacity.Options{
		Path:        cfg.capacityPath,
		OpenTimeout: cfg.capacityOpenTimeout,
		MemoMaxCost: cfg.memoMaxCost,
		Logger:      cfg.logger.Named("capacity"),
		Metrics:     m,
	})
	c.sweeper = sweeper.New(c, sweeper.Options{
		Interval: cfg.sweepInterval,
		Clock:    cfg.clock,
		Logger:   cfg.logger.Named("sweeper"),
	})
	return c, nil
}

// Open builds a Cache, probes the capacity tier once and starts the expiry
// sweeper, which runs an immediate pass. A capacity tier that cannot be
// opened is not an error: the cache runs on the simple tier alone.
func Open(ctx context.Context, opts ...Option) (*Cache, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.capacity.Init(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = c.Close()
			return nil, ctxErr
		}
	}
	if !c.cfg.noSweeper {
		c.sweeper.Start(context.WithoutCancel(ctx))
	}
	return c, nil
}

// Set stores data under (ns, key) for ttl, replacing any previous value. A
// ttl <= 0 means the default ttl. The payload is JSON-encoded; its encoded
// size picks the tier.
func (c *Cache) Set(ctx context.Context, ns storage.TenantID, key string, data any, ttl time.Duration) error {
	if err := validate(ns, key); err != nil {
		return err
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("tenantcache: encode %q: %w", key, err)
	}

	ctx, span := tracing.Start(ctx, c.tracing, "Set",
		tracing.Namespace(ns), tracing.Key(key), tracing.AttrBytes.Int(len(buf)))
	wrote, err := c.set(ctx, ns, key, buf, ttl)
	if err == nil {
		span.SetAttributes(tracing.Tier(wrote))
	}
	tracing.End(span, err)
	return err
}

func (c *Cache) set(ctx context.Context, ns storage.TenantID, key string, buf []byte, ttl time.Duration) (tier.Tier, error) {
	if ttl <= 0 {
		ttl = c.cfg.defaultTTL
	}
	entry := storage.NewEntry(buf, ns, c.clock.Now(), ttl)
	selected := c.selector.Select(entry.Size())

	mu := c.lock(ns, key)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return tier.Simple, err
	}

	wrote := tier.Simple
	if selected == tier.Capacity {
		if c.capacityReady(ctx) {
			if err := c.capacity.Put(ctx, ns, key, entry); err != nil {
				// A caller that gave up is not a tier failure.
				if ctxErr := ctx.Err(); ctxErr != nil {
					return wrote, ctxErr
				}
				c.warnDegraded("capacity write failed, using simple tier",
					zap.Stringer("namespace", ns), zap.String("key", key), zap.Error(err))
			} else {
				wrote = tier.Capacity
			}
		} else {
			c.warnDegraded("capacity tier unavailable, using simple tier",
				zap.Stringer("namespace", ns), zap.String("key", key), zap.Int("bytes", len(buf)))
		}
		if wrote != tier.Capacity {
			c.metrics.FallbackWrite()
		}
	}
	if wrote == tier.Simple {
		if err := c.simple.Put(ctx, ns, key, entry); err != nil {
			return wrote, err
		}
	}
	c.metrics.Write(wrote)

	// The pair may have lived in the other tier under an earlier size. Once
	// the new value is down the eviction has to finish, or a stale copy can
	// shadow it.
	if err := c.evictOther(context.WithoutCancel(ctx), wrote, ns, key); err != nil {
		c.log.Warn("stale copy left in other tier",
			zap.Stringer("namespace", ns), zap.String("key", key), zap.Stringer("tier", wrote), zap.Error(err))
		return wrote, fmt.Errorf("tenantcache: evict stale %q: %w", key, unavailable(err))
	}
	return wrote, nil
}

func (c *Cache) evictOther(ctx context.Context, wrote tier.Tier, ns storage.TenantID, key string) error {
	switch wrote {
	case tier.Capacity:
		return c.simple.Delete(ctx, ns, key)
	case tier.Simple:
		// A small write never opens the capacity tier on its own.
		if c.capacity.State() == capacity.Ready {
			return c.capacity.Delete(ctx, ns, key)
		}
	}
	return nil
}

// Get decodes the live value under (ns, key) into dst. It reports false on a
// miss, including when the entry has expired or no tier can be read.
func (c *Cache) Get(ctx context.Context, ns storage.TenantID, key string, dst any) (bool, error) {
	raw, ok, err := c.GetRaw(ctx, ns, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("tenantcache: decode %q: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the live payload under (ns, key) as stored. The capacity
// tier is consulted first, then the simple tier.
func (c *Cache) GetRaw(ctx context.Context, ns storage.TenantID, key string) (json.RawMessage, bool, error) {
	if err := validate(ns, key); err != nil {
		return nil, false, err
	}
	ctx, span := tracing.Start(ctx, c.tracing, "Get", tracing.Namespace(ns), tracing.Key(key))
	defer tracing.End(span, nil)

	now := c.clock.Now()
	if c.capacityReady(ctx) {
		if data, ok := c.lookup(ctx, tier.Capacity, c.capacity, ns, key, now); ok {
			span.SetAttributes(tracing.AttrHit.Bool(true), tracing.Tier(tier.Capacity))
			return data, true, nil
		}
	}
	if data, ok := c.lookup(ctx, tier.Simple, c.simple, ns, key, now); ok {
		span.SetAttributes(tracing.AttrHit.Bool(true), tracing.Tier(tier.Simple))
		return data, true, nil
	}
	c.metrics.Miss()
	span.SetAttributes(tracing.AttrHit.Bool(false))
	return nil, false, nil
}

func (c *Cache) lookup(ctx context.Context, t tier.Tier, s storage.Store, ns storage.TenantID, key string, now time.Time) (json.RawMessage, bool) {
	entry, ok, err := s.Get(ctx, ns, key)
	if err != nil {
		c.log.Debug("read failed, treating as miss",
			zap.Stringer("tier", t), zap.Stringer("namespace", ns), zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if entry.Expired(now) {
		// Logically absent; the sweep removes the record.
		return nil, false
	}
	c.metrics.Hit(t)
	return entry.Data, true
}

// Delete removes (ns, key) from both tiers.
func (c *Cache) Delete(ctx context.Context, ns storage.TenantID, key string) error {
	if err := validate(ns, key); err != nil {
		return err
	}
	ctx, span := tracing.Start(ctx, c.tracing, "Delete", tracing.Namespace(ns), tracing.Key(key))

	mu := c.lock(ns, key)
	mu.Lock()
	var errs []error
	if c.capacityReady(ctx) {
		errs = append(errs, c.capacity.Delete(ctx, ns, key))
	}
	errs = append(errs, c.simple.Delete(ctx, ns, key))
	mu.Unlock()

	err := unavailable(errors.Join(errs...))
	tracing.End(span, err)
	return err
}

// ClearNamespace removes every entry of ns from both tiers.
func (c *Cache) ClearNamespace(ctx context.Context, ns storage.TenantID) error {
	if !ns.Valid() {
		return ErrInvalidNamespace
	}
	ctx, span := tracing.Start(ctx, c.tracing, "ClearNamespace", tracing.Namespace(ns))

	var errs []error
	if c.capacityReady(ctx) {
		errs = append(errs, c.capacity.ClearNamespace(ctx, ns))
	}
	errs = append(errs, c.simple.ClearNamespace(ctx, ns))

	err := unavailable(errors.Join(errs...))
	if err == nil {
		c.log.Info("namespace cleared", zap.Stringer("namespace", ns))
	}
	tracing.End(span, err)
	return err
}

// Clear removes every entry of every namespace from both tiers. Clearing an
// empty cache is a no-op.
func (c *Cache) Clear(ctx context.Context) error {
	ctx, span := tracing.Start(ctx, c.tracing, "Clear")

	var errs []error
	if c.capacityReady(ctx) {
		errs = append(errs, c.capacity.ClearAll(ctx))
	}
	errs = append(errs, c.simple.ClearAll(ctx))

	err := unavailable(errors.Join(errs...))
	tracing.End(span, err)
	return err
}

// CleanupExpired removes every expired entry from both tiers and returns how
// many were removed. The capacity tier is skipped unless it is Ready. Store
// failures are logged, never returned.
func (c *Cache) CleanupExpired(ctx context.Context) uint64 {
	ctx, span := tracing.Start(ctx, c.tracing, "CleanupExpired")
	now := c.clock.Now()

	var total uint64
	if c.capacityReady(ctx) {
		n, err := c.capacity.SweepExpired(ctx, now)
		if err != nil {
			c.log.Warn("capacity sweep failed", zap.Error(err))
		}
		total += n
	}
	n, err := c.simple.SweepExpired(ctx, now)
	if err != nil {
		c.log.Warn("simple sweep failed", zap.Uint64("removed", n), zap.Error(err))
	}
	total += n

	span.SetAttributes(tracing.AttrRemoved.Int64(int64(total)))
	tracing.End(span, nil)
	return total
}

// CapacityState reports the capacity tier's lifecycle position. Failed means
// every write goes to the simple tier for the life of the process, which
// lets callers tell "not cached" apart from "large-payload caching is off".
func (c *Cache) CapacityState() capacity.State {
	return c.capacity.State()
}

// Close stops the sweeper and releases both tiers. Later calls return the
// first call's result.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.sweeper.Stop()
		errs := []error{c.capacity.Close()}
		for _, fn := range c.closers {
			errs = append(errs, fn())
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// getOrLoad returns the cached payload or runs load once for all concurrent
// callers of the same (ns, key) and caches its result. A failed write of the
// loaded value does not fail the call.
func (c *Cache) getOrLoad(ctx context.Context, ns storage.TenantID, key string, ttl time.Duration, load func(context.Context) (any, error)) (json.RawMessage, error) {
	if raw, ok, err := c.GetRaw(ctx, ns, key); err != nil || ok {
		return raw, err
	}
	v, err, _ := c.loads.Do(ns.String()+":"+key, func() (any, error) {
		if raw, ok, _ := c.GetRaw(ctx, ns, key); ok {
			return raw, nil
		}
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		buf, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("tenantcache: encode %q: %w", key, err)
		}
		if err := c.Set(ctx, ns, key, json.RawMessage(buf), ttl); err != nil {
			c.log.Warn("caching loaded value failed",
				zap.Stringer("namespace", ns), zap.String("key", key), zap.Error(err))
		}
		return json.RawMessage(buf), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (c *Cache) capacityReady(ctx context.Context) bool {
	switch c.capacity.State() {
	case capacity.Ready:
		return true
	case capacity.Failed:
		return false
	}
	return c.capacity.Init(ctx) == nil
}

func (c *Cache) lock(ns storage.TenantID, key string) *sync.Mutex {
	h := xxhash.Sum64String(ns.String() + ":" + key)
	return &c.locks[h%lockStripes]
}

func (c *Cache) warnDegraded(msg string, fields ...zap.Field) {
	if c.degraded.Allow() {
		c.log.Warn(msg, fields...)
	}
}
